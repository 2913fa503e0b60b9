// File path: internal/decoder/numeric.go
package decoder

import (
	"strings"

	"github.com/nicodishanthj/copybase/internal/copybook"
)

// ASCII zoned-decimal overpunch characters for the final digit. '{' through
// 'I' carry a positive sign, '}' through 'R' a negative one.
var (
	overpunchPositive = map[byte]byte{'{': '0', 'A': '1', 'B': '2', 'C': '3', 'D': '4', 'E': '5', 'F': '6', 'G': '7', 'H': '8', 'I': '9'}
	overpunchNegative = map[byte]byte{'}': '0', 'J': '1', 'K': '2', 'L': '3', 'M': '4', 'N': '5', 'O': '6', 'P': '7', 'Q': '8', 'R': '9'}
)

// decodeZoned interprets DISPLAY-usage numeric bytes. EBCDIC zoned data
// carries the sign in the zone nibble of the final byte; ASCII data may use
// an explicit leading/trailing sign character or an overpunched final digit.
func (o Options) decodeZoned(field *copybook.Field, raw []byte, offset int) (string, *copybook.Error) {
	if o.Encoding == EncodingEBCDIC {
		return decodeZonedEBCDIC(field, raw, offset)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return applyScale("0", field.Scale, false), nil
	}
	negative := false
	switch text[0] {
	case '-':
		negative = true
		text = text[1:]
	case '+':
		text = text[1:]
	}
	if n := len(text); n > 0 {
		switch text[n-1] {
		case '-':
			negative = true
			text = text[:n-1]
		case '+':
			text = text[:n-1]
		default:
			if d, ok := overpunchPositive[text[n-1]]; ok {
				text = text[:n-1] + string(d)
			} else if d, ok := overpunchNegative[text[n-1]]; ok {
				negative = true
				text = text[:n-1] + string(d)
			}
		}
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return "", copybook.MalformedError(field.Name, offset, "invalid zoned-decimal byte %q", text[i])
		}
	}
	if text == "" {
		text = "0"
	}
	return applyScale(text, field.Scale, negative), nil
}

func decodeZonedEBCDIC(field *copybook.Field, raw []byte, offset int) (string, *copybook.Error) {
	blank := true
	for _, b := range raw {
		if b != 0x40 {
			blank = false
			break
		}
	}
	if blank {
		return applyScale("0", field.Scale, false), nil
	}
	digits := make([]byte, 0, len(raw))
	negative := false
	for i, b := range raw {
		zone, digit := b>>4, b&0x0F
		if digit > 9 {
			return "", copybook.MalformedError(field.Name, offset+i, "invalid zoned digit nibble %#x", digit)
		}
		if i == len(raw)-1 {
			switch zone {
			case 0xC, 0xF:
			case 0xD:
				negative = true
			default:
				return "", copybook.MalformedError(field.Name, offset+i, "invalid zoned sign nibble %#x", zone)
			}
		} else if zone != 0xF {
			return "", copybook.MalformedError(field.Name, offset+i, "invalid zone nibble %#x", zone)
		}
		digits = append(digits, '0'+digit)
	}
	return applyScale(string(digits), field.Scale, negative), nil
}

// decodePacked unpacks COMP-3 binary-coded decimal: two digits per byte with
// the final nibble reserved for the sign.
func decodePacked(field *copybook.Field, raw []byte, offset int) (string, *copybook.Error) {
	if len(raw) == 0 {
		return "", copybook.MalformedError(field.Name, offset, "empty packed-decimal field")
	}
	digits := make([]byte, 0, len(raw)*2)
	for i, b := range raw {
		hi, lo := b>>4, b&0x0F
		last := i == len(raw)-1
		if hi > 9 {
			return "", copybook.MalformedError(field.Name, offset+i, "invalid packed digit nibble %#x", hi)
		}
		digits = append(digits, '0'+hi)
		if last {
			continue // low nibble of the final byte is the sign
		}
		if lo > 9 {
			return "", copybook.MalformedError(field.Name, offset+i, "invalid packed digit nibble %#x", lo)
		}
		digits = append(digits, '0'+lo)
	}
	sign := raw[len(raw)-1] & 0x0F
	negative := false
	switch sign {
	case 0xA, 0xC, 0xE, 0xF:
	case 0xB, 0xD:
		negative = true
	default:
		return "", copybook.MalformedError(field.Name, offset+len(raw)-1, "invalid packed sign nibble %#x", sign)
	}
	return applyScale(string(digits), field.Scale, negative), nil
}

// decodeBinary interprets COMP storage as a fixed-width big-endian signed
// integer of 2, 4, or 8 bytes.
func decodeBinary(field *copybook.Field, raw []byte, offset int) (string, *copybook.Error) {
	switch len(raw) {
	case 2, 4, 8:
	default:
		return "", copybook.MalformedError(field.Name, offset, "unsupported COMP width %d", len(raw))
	}
	var value int64
	for _, b := range raw {
		value = value<<8 | int64(b)
	}
	// sign-extend from the declared width
	shift := uint(64 - len(raw)*8)
	value = value << shift >> shift
	negative := value < 0
	if negative {
		value = -value
	}
	return applyScale(formatInt(value), field.Scale, negative), nil
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// applyScale places the implied decimal point declared by the PIC picture
// and strips redundant leading zeros.
func applyScale(digits string, scale int, negative bool) string {
	for len(digits) <= scale {
		digits = "0" + digits
	}
	var out string
	if scale > 0 {
		out = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	} else {
		out = digits
	}
	out = strings.TrimLeft(out, "0")
	if out == "" || out[0] == '.' {
		out = "0" + out
	}
	if negative && strings.Trim(out, "0.") != "" {
		out = "-" + out
	}
	return out
}
