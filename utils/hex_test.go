package utils

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func sequence(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func dumpLines(text string) []string {
	if text == "" {
		return nil
	}
	if !strings.HasSuffix(text, "\n") {
		return []string{"<missing trailing newline>"}
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func TestHexDumpThreeBytes(t *testing.T) {
	got := HexDump([]byte{0x41, 0x42, 0x43}, 3)
	want := "00000000 41 42 43 ABC< \n"
	if got != want {
		t.Errorf("HexDump = %q, want %q", got, want)
	}
}

func TestHexDumpEmpty(t *testing.T) {
	if got := HexDump(nil, 0); got != "" {
		t.Errorf("HexDump(nil, 0) = %q, want empty", got)
	}
	if got := HexDump([]byte("ignored"), 0); got != "" {
		t.Errorf("HexDump(buf, 0) = %q, want empty", got)
	}
}

func TestHexDumpTwentyBytes(t *testing.T) {
	lines := dumpLines(HexDump(sequence(20), 20))
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), lines)
	}
	want := "00000010 10 11 12 13  ....< "
	if lines[1] != want {
		t.Errorf("line 2 = %q, want %q", lines[1], want)
	}
}

func TestHexDumpFullLine(t *testing.T) {
	got := HexDump([]byte("0123456789ABCDEF"), 16)
	want := "00000000 30 31 32 33  34 35 36 37  38 39 41 42  43 44 45 46  0123456789ABCDEF< \n"
	if got != want {
		t.Errorf("HexDump = %q, want %q", got, want)
	}
}

func TestHexDumpGroupBlankOnShortChunk(t *testing.T) {
	got := HexDump([]byte("abcdefghijklmnopqrstu"), 21)
	lines := dumpLines(got)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if want := "00000010 71 72 73 74  75 qrstu< "; lines[1] != want {
		t.Errorf("line 2 = %q, want %q", lines[1], want)
	}

	got = HexDump([]byte("wxyz"), 4)
	if want := "00000000 77 78 79 7A  wxyz< \n"; got != want {
		t.Errorf("HexDump = %q, want %q", got, want)
	}
}

func TestHexDumpPrefixOnly(t *testing.T) {
	buf := []byte("ABCDEFGH")
	got := HexDump(buf, 2)
	if want := "00000000 41 42 AB< \n"; got != want {
		t.Errorf("HexDump(buf, 2) = %q, want %q", got, want)
	}
}

func TestHexDumpDoesNotModifyInput(t *testing.T) {
	buf := sequence(300)
	original := append([]byte(nil), buf...)
	HexDump(buf, len(buf))
	HexDumpLayout(buf, len(buf), LayoutClassic)
	if !bytes.Equal(buf, original) {
		t.Error("input buffer was modified")
	}
}

func TestHexDumpColumnPlacement(t *testing.T) {
	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(255 - i)
	}

	for length := 0; length <= 70; length++ {
		lines := dumpLines(HexDump(buf, length))
		if want := (length + BytesPerLine - 1) / BytesPerLine; len(lines) != want {
			t.Fatalf("length %d: got %d lines, want %d", length, len(lines), want)
		}

		for index, line := range lines {
			if want := fmt.Sprintf("%08X", index*BytesPerLine); line[:8] != want {
				t.Errorf("length %d line %d: offset %q, want %q", length, index, line[:8], want)
			}

			chunk := buf[index*BytesPerLine : min(length, (index+1)*BytesPerLine)]
			n := len(chunk)
			printableColumn := 9 + 3*n + n/GroupSize
			if want := printableColumn + n + 2; len(line) != want {
				t.Fatalf("length %d line %d: width %d, want %d", length, index, len(line), want)
			}

			for i, b := range chunk {
				column := 9 + 3*i + i/GroupSize
				if got, want := line[column:column+2], fmt.Sprintf("%02X", b); got != want {
					t.Errorf("length %d line %d byte %d: pair %q, want %q", length, index, i, got, want)
				}

				wantChar := byte('.')
				if b >= 0x20 && b <= 0x7E {
					wantChar = b
				}
				if got := line[printableColumn+i]; got != wantChar {
					t.Errorf("length %d line %d byte %d: char %q, want %q", length, index, i, got, wantChar)
				}
			}

			if got := line[len(line)-2:]; got != "< " {
				t.Errorf("length %d line %d: marker %q, want %q", length, index, got, "< ")
			}
		}
	}
}

func TestHexDumpBeyondBufferPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("HexDump with length beyond buffer did not panic")
		}
	}()
	HexDump([]byte("AB"), 3)
}

func TestHexDumpClassic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{
			name: "short",
			data: []byte("ABC"),
			want: []string{
				" >414243< " + strings.Repeat(" ", 29) + "ABC" + strings.Repeat(" ", 14) + "00000000",
			},
		},
		{
			name: "full",
			data: []byte("0123456789ABCDEF"),
			want: []string{
				" >30313233 34353637 38394142 43444546< 0123456789ABCDEF 00000000",
			},
		},
		{
			name: "group boundary",
			data: []byte("0123456789ABCDEF\x00\x01\x02\x03"),
			want: []string{
				" >30313233 34353637 38394142 43444546< 0123456789ABCDEF 00000000",
				" >00010203< " + strings.Repeat(" ", 27) + "...." + strings.Repeat(" ", 13) + "00000010",
			},
		},
		{
			name: "second group",
			data: []byte("HELLO"),
			want: []string{
				" >48454C4C 4F< " + strings.Repeat(" ", 24) + "HELLO" + strings.Repeat(" ", 12) + "00000000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := dumpLines(HexDumpLayout(tt.data, len(tt.data), LayoutClassic))
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d: %q", len(lines), len(tt.want), lines)
			}
			for i := range lines {
				if len(lines[i]) != classicWidth {
					t.Errorf("line %d width = %d, want %d", i, len(lines[i]), classicWidth)
				}
				if lines[i] != tt.want[i] {
					t.Errorf("line %d:\n got %q\nwant %q", i, lines[i], tt.want[i])
				}
			}
		})
	}
}

func TestDumperContinuesOffsets(t *testing.T) {
	dumper := NewDumperAt(LayoutCompact, 0x100)
	dumper.Append([]byte("ABCDEFGHIJKLMNOPQR"))
	dumper.Append([]byte("xyz"))
	dumper.Append(nil)

	lines := dumper.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	wantOffsets := []uint32{0x100, 0x110, 0x112}
	for i, line := range lines {
		if line.Offset != wantOffsets[i] {
			t.Errorf("line %d offset = %#x, want %#x", i, line.Offset, wantOffsets[i])
		}
	}
	if got, want := lines[2].String(), "00000112 78 79 7A xyz< "; got != want {
		t.Errorf("line 3 = %q, want %q", got, want)
	}

	var out bytes.Buffer
	n, err := dumper.WriteTo(&out)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(out.Len()) || out.String() != dumper.String() {
		t.Errorf("WriteTo wrote %d bytes %q, want %q", n, out.String(), dumper.String())
	}
}

func TestDumperCopiesInput(t *testing.T) {
	buf := []byte("ABCD")
	dumper := NewDumper(LayoutCompact)
	dumper.Append(buf)
	buf[0] = 'Z'
	if got := dumper.Lines()[0].Printable(); got != "ABCD" {
		t.Errorf("Printable = %q after caller modified input, want %q", got, "ABCD")
	}
}

func TestDumpLineColumns(t *testing.T) {
	line := DumpLine{Offset: 0x20, Data: []byte{0x00, 0x7F, 0x20, 0x7E, 0xFF}}

	if got, want := line.Hex(), "00 7F 20 7E  FF "; got != want {
		t.Errorf("Hex = %q, want %q", got, want)
	}
	if got, want := line.Printable(), ".. ~."; got != want {
		t.Errorf("Printable = %q, want %q", got, want)
	}

	columns := line.Columns()
	want := []Column{{"00", '.'}, {"7F", '.'}, {"20", ' '}, {"7E", '~'}, {"FF", '.'}}
	if len(columns) != len(want) {
		t.Fatalf("got %d columns, want %d", len(columns), len(want))
	}
	for i := range columns {
		if columns[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, columns[i], want[i])
		}
	}
}

func TestHexDumpAt(t *testing.T) {
	r := bytes.NewReader(sequence(64))

	got, err := HexDumpAt(r, 0x24, 6, LayoutCompact)
	if err != nil {
		t.Fatalf("HexDumpAt: %v", err)
	}
	if want := "00000024 24 25 26 27  28 29 $%&'()< \n"; got != want {
		t.Errorf("HexDumpAt = %q, want %q", got, want)
	}

	got, err = HexDumpAt(r, 48, 16, LayoutCompact)
	if err != nil {
		t.Fatalf("HexDumpAt at end of reader: %v", err)
	}
	if lines := dumpLines(got); len(lines) != 1 || !strings.HasPrefix(lines[0], "00000030 30 31") {
		t.Errorf("HexDumpAt at end of reader = %q", got)
	}
}

func TestHexDumpAtErrors(t *testing.T) {
	r := bytes.NewReader(sequence(8))

	if _, err := HexDumpAt(r, 4, 8, LayoutCompact); err == nil {
		t.Error("HexDumpAt past end of reader: expected error")
	}
	if _, err := HexDumpAt(r, -1, 4, LayoutCompact); !errors.Is(err, ErrDumpRange) {
		t.Errorf("negative offset: err = %v, want ErrDumpRange", err)
	}
	if _, err := HexDumpAt(r, 1<<32, 4, LayoutCompact); !errors.Is(err, ErrDumpRange) {
		t.Errorf("offset beyond 32 bits: err = %v, want ErrDumpRange", err)
	}
	if _, err := HexDumpAt(r, math.MaxUint32-15, 17, LayoutCompact); !errors.Is(err, ErrDumpRange) {
		t.Errorf("window ending past 32 bits: err = %v, want ErrDumpRange", err)
	}
	if _, err := HexDumpAt(r, math.MaxInt64, math.MaxInt64, LayoutCompact); !errors.Is(err, ErrDumpRange) {
		t.Errorf("huge window: err = %v, want ErrDumpRange", err)
	}
	if _, err := HexDumpAt(r, 0, math.MaxInt64, LayoutCompact); !errors.Is(err, ErrDumpRange) {
		t.Errorf("huge length: err = %v, want ErrDumpRange", err)
	}
}

// filler is an io.ReaderAt of unbounded size whose bytes equal the low
// byte of their offset.
type filler struct{}

func (filler) ReadAt(p []byte, off int64) (int, error) {
	for i := range p {
		p[i] = byte(off + int64(i))
	}
	return len(p), nil
}

func TestHexDumpAtLastLine(t *testing.T) {
	got, err := HexDumpAt(filler{}, math.MaxUint32-15, 16, LayoutCompact)
	if err != nil {
		t.Fatalf("HexDumpAt: %v", err)
	}
	want := "FFFFFFF0 F0 F1 F2 F3  F4 F5 F6 F7  F8 F9 FA FB  FC FD FE FF  ................< \n"
	if got != want {
		t.Errorf("HexDumpAt = %q, want %q", got, want)
	}
}

func TestLogHexDump(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	LogHexDump(logger, "header", sequence(20))

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d log entries, want 2", len(entries))
	}
	if entries[0].Level != logrus.DebugLevel {
		t.Errorf("level = %v, want debug", entries[0].Level)
	}
	if got, want := entries[1].Data["offset"], uint32(16); got != want {
		t.Errorf("offset field = %v, want %v", got, want)
	}
	if want := "header 00000010 10 11 12 13  ....< "; entries[1].Message != want {
		t.Errorf("message = %q, want %q", entries[1].Message, want)
	}
}

func TestParseLayout(t *testing.T) {
	for _, layout := range []Layout{LayoutCompact, LayoutClassic} {
		got, err := ParseLayout(layout.String())
		if err != nil {
			t.Fatalf("ParseLayout(%q): %v", layout, err)
		}
		if got != layout {
			t.Errorf("ParseLayout(%q) = %v", layout, got)
		}
	}
	if got, err := ParseLayout("CLASSIC"); err != nil || got != LayoutClassic {
		t.Errorf("ParseLayout(CLASSIC) = %v, %v", got, err)
	}
	if _, err := ParseLayout("wide"); !errors.Is(err, ErrUnknownLayout) {
		t.Errorf("ParseLayout(wide) err = %v, want ErrUnknownLayout", err)
	}
}
