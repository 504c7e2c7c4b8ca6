package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// residueReplacer undoes the second escaping layer: the characters the
// page separately backslash-escapes for embedding inside the script
// call. It must run after literal-escape decoding, not before, or
// slashes and quotes stay corrupted in URLs and attributes.
var residueReplacer = strings.NewReplacer(
	`\/`, `/`,
	`\"`, `"`,
	`\'`, `'`,
)

// DecodeScriptLiteral recovers markup from a doubly-escaped script
// string argument. The payload is escaped first as a source-level
// string literal (backslash-escaped Unicode and control sequences) and
// then has /, " and ' separately backslash-escaped; decoding reverses
// both layers in that order. Unrecognized escapes are preserved
// untouched so a malformed payload degrades instead of failing.
//
// Payloads containing legitimately double-escaped sequences are
// ambiguous under this scheme; the decode is deliberately not clever
// about them.
func DecodeScriptLiteral(raw string) string {
	return residueReplacer.Replace(decodeLiteral(raw))
}

// decodeLiteral reverses source-level string escapes: \uXXXX (with
// surrogate pairs), \xXX and single-character control escapes. Unknown
// escape pairs pass through with the backslash intact.
func decodeLiteral(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}

		switch next := s[i+1]; next {
		case 'u':
			r, consumed := decodeUnicodeEscape(s[i:])
			if consumed == 0 {
				b.WriteByte(c)
				i++
				continue
			}
			b.WriteRune(r)
			i += consumed
		case 'x':
			if i+4 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+4], 16, 16); err == nil {
					b.WriteRune(rune(v))
					i += 4
					continue
				}
			}
			b.WriteByte(c)
			i++
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'v':
			b.WriteByte('\v')
			i += 2
		case '0':
			b.WriteByte(0)
			i += 2
		case '\\':
			b.WriteByte('\\')
			i += 2
		case '"':
			b.WriteByte('"')
			i += 2
		case '\'':
			b.WriteByte('\'')
			i += 2
		default:
			// Unknown escape: keep backslash and character as-is for
			// the residue pass.
			b.WriteByte(c)
			b.WriteByte(next)
			i += 2
		}
	}

	return b.String()
}

// decodeUnicodeEscape decodes a \uXXXX sequence at the start of s,
// combining UTF-16 surrogate pairs when both halves are present.
// Returns the rune and the number of input bytes consumed, or 0 when
// the sequence is malformed.
func decodeUnicodeEscape(s string) (rune, int) {
	if len(s) < 6 || s[0] != '\\' || s[1] != 'u' {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[2:6], 16, 32)
	if err != nil {
		return 0, 0
	}
	r := rune(v)

	if utf16.IsSurrogate(r) && len(s) >= 12 && s[6] == '\\' && s[7] == 'u' {
		if v2, err := strconv.ParseUint(s[8:12], 16, 32); err == nil {
			if combined := utf16.DecodeRune(r, rune(v2)); combined != utf8.RuneError {
				return combined, 12
			}
		}
	}

	return r, 6
}
