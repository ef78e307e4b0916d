package rabota

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf16"
	"unicode/utf8"
)

// Sign computes the request signature for params with the given secret:
// the lowercase hex SHA-256 of the canonical JSON form of params followed
// by the secret.
//
// The canonical form is a compact JSON object with keys in insertion order
// and strings escaped the way the provider's backend (PHP json_encode with
// default flags) escapes them: "/" becomes "\/" and every non-ASCII rune is
// written as a \uXXXX escape.
func Sign(params Params, secret string) string {
	buf := params.appendJSON(make([]byte, 0, 128))
	buf = append(buf, secret...)

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

const hexDigits = "0123456789abcdef"

func appendPHPString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"', '\\', '/':
				buf = append(buf, '\\', c)
			case '\b':
				buf = append(buf, '\\', 'b')
			case '\f':
				buf = append(buf, '\\', 'f')
			case '\n':
				buf = append(buf, '\\', 'n')
			case '\r':
				buf = append(buf, '\\', 'r')
			case '\t':
				buf = append(buf, '\\', 't')
			default:
				if c < 0x20 {
					buf = appendUnicodeEscape(buf, rune(c))
				} else {
					buf = append(buf, c)
				}
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r1, r2 := utf16.EncodeRune(r); r1 != utf8.RuneError {
			buf = appendUnicodeEscape(buf, r1)
			buf = appendUnicodeEscape(buf, r2)
		} else {
			buf = appendUnicodeEscape(buf, r)
		}
		i += size
	}
	return append(buf, '"')
}

func appendUnicodeEscape(buf []byte, r rune) []byte {
	return append(buf, '\\', 'u',
		hexDigits[(r>>12)&0xf],
		hexDigits[(r>>8)&0xf],
		hexDigits[(r>>4)&0xf],
		hexDigits[r&0xf],
	)
}
