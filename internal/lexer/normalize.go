package lexer

import (
	"bytes"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares raw source bytes for tokenization: a leading UTF-8
// byte-order mark is dropped and the text is brought into NFC form, so an
// identifier spelled with combining marks tokenizes the same as its
// precomposed spelling. New applies it to its input, so callers only reach
// for it directly when they need the normalized bytes themselves.
func Normalize(src []byte) []byte {
	return norm.NFC.Bytes(bytes.TrimPrefix(src, []byte("\xef\xbb\xbf")))
}
