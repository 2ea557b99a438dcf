package utils

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
)

// IsPrintable reports whether b is a printable ASCII character (0x20-0x7E).
func IsPrintable(b byte) bool { return b >= 0x20 && b <= 0x7E }

type CString []byte

func (c CString) NullTerminateBytes() []byte {
	if i := bytes.IndexByte(c, 0); i >= 0 {
		return c[:i]
	}
	return c
}

func (c CString) String() string { return string(c.NullTerminateBytes()) }

// Decode converts the string from a single-byte codepage. Undecodable
// input falls back to the raw bytes.
func (c CString) Decode(encoding *charmap.Charmap) string {
	raw := c.NullTerminateBytes()
	if encoding == nil || len(raw) == 0 {
		return string(raw)
	}
	buf, err := encoding.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(buf)
}

