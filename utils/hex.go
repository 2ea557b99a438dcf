package utils

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

const (
	BytesPerLine = 16
	GroupSize    = 4
)

// Layout selects how dump lines are rendered.
type Layout uint8

const (
	// LayoutCompact renders "OFFSET XX XX XX XX  XX ... printable< ".
	LayoutCompact Layout = iota
	// LayoutClassic renders the fixed 64-column " >XXXXXXXX XXXX...< printable    OFFSET" line.
	LayoutClassic
)

const (
	classicWidth           = 64
	classicHexColumn       = 2
	classicPrintableColumn = 39
	classicOffsetColumn    = 56
)

const hexDigits = "0123456789ABCDEF"

var (
	ErrDumpRange     = errors.New("hexdump: window outside 32-bit offset range")
	ErrUnknownLayout = errors.New("hexdump: unknown layout")
)

func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(name) {
	case "", "compact":
		return LayoutCompact, nil
	case "classic":
		return LayoutClassic, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
}

func (layout Layout) String() string {
	switch layout {
	case LayoutCompact:
		return "compact"
	case LayoutClassic:
		return "classic"
	}
	return "unknown"
}

func (layout Layout) lineWidth() int {
	if layout == LayoutClassic {
		return classicWidth + 1
	}
	// offset, blank, 16 pairs, 4 group blanks, printable, marker, newline
	return 8 + 1 + BytesPerLine*3 + BytesPerLine/GroupSize + BytesPerLine + 2 + 1
}

// HexDump formats the first length bytes of buf in the compact layout.
// It panics if length is negative or greater than len(buf).
func HexDump(buf []byte, length int) string {
	return HexDumpLayout(buf, length, LayoutCompact)
}

func HexDumpLayout(buf []byte, length int, layout Layout) string {
	dumper := NewDumper(layout)
	dumper.Append(buf[:length:len(buf)])
	return dumper.String()
}

// HexDumpAt dumps length bytes of r starting at offset. Line offsets are
// absolute positions in r, so the window must end within the 32-bit
// offset space.
func HexDumpAt(r io.ReaderAt, offset, length int64, layout Layout) (string, error) {
	if offset < 0 || length < 0 || offset > math.MaxUint32 || length > math.MaxUint32+1-offset {
		return "", ErrDumpRange
	}

	buf := make([]byte, length)
	n, err := r.ReadAt(buf, offset)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == length) {
		return "", err
	}

	dumper := NewDumperAt(layout, uint32(offset))
	dumper.Append(buf)
	return dumper.String(), nil
}

// Dumper is an output builder: it splits appended data into DumpLine
// records and renders them on demand.
type Dumper struct {
	layout Layout
	offset uint32
	lines  []DumpLine
}

func NewDumper(layout Layout) *Dumper { return NewDumperAt(layout, 0) }

func NewDumperAt(layout Layout, base uint32) *Dumper {
	return &Dumper{layout: layout, offset: base}
}

// Append records data as lines of at most BytesPerLine bytes. Offsets
// continue from the previous Append. data is copied.
func (dumper *Dumper) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	data = append([]byte(nil), data...)
	for len(data) > 0 {
		n := min(len(data), BytesPerLine)
		dumper.lines = append(dumper.lines, DumpLine{Offset: dumper.offset, Data: data[:n:n]})
		dumper.offset += uint32(n)
		data = data[n:]
	}
}

func (dumper *Dumper) Lines() []DumpLine { return dumper.lines }
func (dumper *Dumper) Layout() Layout    { return dumper.layout }

func (dumper *Dumper) String() string { return string(dumper.appendText(nil)) }

func (dumper *Dumper) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(dumper.appendText(nil))
	return int64(n), err
}

func (dumper *Dumper) appendText(dst []byte) []byte {
	if dst == nil {
		dst = make([]byte, 0, len(dumper.lines)*dumper.layout.lineWidth())
	}
	for _, line := range dumper.lines {
		dst = line.appendLayout(dst, dumper.layout)
		dst = append(dst, '\n')
	}
	return dst
}
