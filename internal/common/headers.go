// Package common provides shared header utilities for go-lornews
package common

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// EncodeHeaderValue MIME-encodes a header value for overview storage.
// ASCII-clean values pass through unchanged.
func EncodeHeaderValue(s string) string {
	return mime.QEncoding.Encode("utf-8", s)
}

// wordDecoder decodes RFC 2047 encoded words. Charsets beyond the stdlib
// set are resolved through x/text's htmlindex: posted articles occasionally
// arrive with koi8-r or windows-1251 subjects.
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(strings.ToLower(strings.TrimSpace(charset)))
		if err != nil {
			return nil, fmt.Errorf("unsupported charset: %s", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// DecodeHeaderValue reverses EncodeHeaderValue. Undecodable input is
// returned as-is; the wire format tolerates raw UTF-8.
func DecodeHeaderValue(s string) string {
	decoded, err := wordDecoder.DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}

// StuffDots applies NNTP dot-stuffing to one line.
func StuffDots(line string) string {
	if strings.HasPrefix(line, ".") {
		return "." + line
	}
	return line
}

// UnstuffDots reverses StuffDots.
func UnstuffDots(line string) string {
	if strings.HasPrefix(line, "..") {
		return line[1:]
	}
	return line
}
