// File path: internal/copybook/picture.go
package copybook

import (
	"regexp"
	"strconv"
	"strings"
)

var repeatRe = regexp.MustCompile(`([9XAVSP])\((\d+)\)`)

// picture summarizes an expanded PIC clause.
type picture struct {
	chars   int  // X/A character positions
	digits  int  // 9 digit positions
	scale   int  // digits after the implied decimal point
	signed  bool // leading S
	numeric bool
}

// parsePicture expands repeat factors (9(5) -> 99999) and counts positions.
// Only the dialect the engine supports is accepted: 9, X, A, V, S, P.
func parsePicture(pic string) (picture, bool) {
	upper := strings.ToUpper(strings.TrimSpace(pic))
	if upper == "" {
		return picture{}, false
	}
	expanded := repeatRe.ReplaceAllStringFunc(upper, func(m string) string {
		parts := repeatRe.FindStringSubmatch(m)
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return m
		}
		return strings.Repeat(parts[1], n)
	})

	var p picture
	afterPoint := false
	for i, r := range expanded {
		switch r {
		case 'S':
			if i != 0 {
				return picture{}, false
			}
			p.signed = true
		case 'V':
			if afterPoint {
				return picture{}, false
			}
			afterPoint = true
		case '9':
			p.digits++
			if afterPoint {
				p.scale++
			}
		case 'P':
			// scaling positions occupy no storage
		case 'X', 'A':
			p.chars++
		default:
			return picture{}, false
		}
	}
	if p.digits == 0 && p.chars == 0 {
		return picture{}, false
	}
	if p.digits > 0 && p.chars > 0 {
		// mixed alphanumeric-numeric pictures are outside the dialect
		return picture{}, false
	}
	p.numeric = p.digits > 0
	return p, true
}

// byteLength derives the storage size of an elementary item from its picture
// and usage. DISPLAY stores one byte per character or digit position with any
// sign overpunched into the last digit. COMP-3 packs two digits per byte with
// a trailing sign nibble. COMP occupies a fixed width by declared digit count.
func byteLength(p picture, usage Usage) (int, bool) {
	switch usage {
	case UsageDisplay, "":
		return p.chars + p.digits, true
	case UsageComp3:
		if !p.numeric {
			return 0, false
		}
		return (p.digits + 2) / 2, true
	case UsageComp:
		if !p.numeric {
			return 0, false
		}
		switch {
		case p.digits <= 4:
			return 2, true
		case p.digits <= 9:
			return 4, true
		case p.digits <= 18:
			return 8, true
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}
