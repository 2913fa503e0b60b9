// File path: internal/decoder/ebcdic.go
package decoder

// cp037 maps EBCDIC code page 037 bytes to ASCII. Bytes with no printable
// ASCII counterpart become spaces so that trailing-space trimming treats
// padded EBCDIC fields the same as ASCII ones.
var cp037 = buildCP037()

func buildCP037() [256]byte {
	var tbl [256]byte
	for i := range tbl {
		tbl[i] = ' '
	}
	set := func(b byte, c byte) { tbl[b] = c }
	setRange := func(from byte, chars string) {
		for i := 0; i < len(chars); i++ {
			tbl[from+byte(i)] = chars[i]
		}
	}
	set(0x40, ' ')
	setRange(0x4B, ".<(+|")
	set(0x50, '&')
	setRange(0x5A, "!$*);^")
	setRange(0x60, "-/")
	setRange(0x6A, "|,%_>?")
	setRange(0x79, "`:#@'=\"")
	setRange(0x81, "abcdefghi")
	setRange(0x91, "jklmnopqr")
	setRange(0xA1, "~stuvwxyz")
	setRange(0xC1, "ABCDEFGHI")
	setRange(0xD1, "JKLMNOPQR")
	set(0xE0, '\\')
	setRange(0xE2, "STUVWXYZ")
	setRange(0xF0, "0123456789")
	set(0xC0, '{')
	set(0xD0, '}')
	return tbl
}

// toASCII translates one DISPLAY byte according to the selected encoding.
func (o Options) toASCII(b byte) byte {
	if o.Encoding == EncodingEBCDIC {
		return cp037[b]
	}
	return b
}
