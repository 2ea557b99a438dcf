package utils

// DumpLine is one formatted row of a dump: up to BytesPerLine bytes and
// the offset of the first one.
type DumpLine struct {
	Offset uint32
	Data   []byte
}

// Column pairs the hex rendering of a byte with its printable form.
type Column struct {
	Pair string
	Char byte
}

func (line DumpLine) Columns() []Column {
	columns := make([]Column, len(line.Data))
	for i, b := range line.Data {
		columns[i] = Column{
			Pair: string([]byte{hexDigits[b>>4], hexDigits[b&0x0F]}),
			Char: printable(b),
		}
	}
	return columns
}

// Hex returns the compact hex column, group blanks included.
func (line DumpLine) Hex() string       { return string(line.appendHex(nil)) }
func (line DumpLine) Printable() string { return string(line.appendPrintable(nil)) }

func (line DumpLine) String() string { return string(line.appendLayout(nil, LayoutCompact)) }

func (line DumpLine) appendLayout(dst []byte, layout Layout) []byte {
	if layout == LayoutClassic {
		return line.appendClassic(dst)
	}
	return line.appendCompact(dst)
}

func (line DumpLine) appendCompact(dst []byte) []byte {
	dst = appendOffset(dst, line.Offset)
	dst = append(dst, ' ')
	dst = line.appendHex(dst)
	dst = line.appendPrintable(dst)
	return append(dst, '<', ' ')
}

func (line DumpLine) appendHex(dst []byte) []byte {
	for i, b := range line.Data {
		dst = append(dst, hexDigits[b>>4], hexDigits[b&0x0F], ' ')
		if (i+1)%GroupSize == 0 {
			dst = append(dst, ' ')
		}
	}
	return dst
}

func (line DumpLine) appendPrintable(dst []byte) []byte {
	for _, b := range line.Data {
		dst = append(dst, printable(b))
	}
	return dst
}

// appendClassic lays the line over a blank 64-column row: pairs are packed
// two columns apart with a blank between groups, the printable column and
// the offset sit at fixed columns.
func (line DumpLine) appendClassic(dst []byte) []byte {
	var row [classicWidth]byte
	for i := range row {
		row[i] = ' '
	}
	row[1] = '>'

	col := classicHexColumn
	for i, b := range line.Data {
		row[col], row[col+1] = hexDigits[b>>4], hexDigits[b&0x0F]
		row[classicPrintableColumn+i] = printable(b)
		col += 2
		if (i+1)%GroupSize == 0 && i+1 < len(line.Data) {
			col++
		}
	}
	row[col], row[col+1] = '<', ' '
	putOffset(row[classicOffsetColumn:], line.Offset)

	return append(dst, row[:]...)
}

func appendOffset(dst []byte, offset uint32) []byte {
	var digits [8]byte
	putOffset(digits[:], offset)
	return append(dst, digits[:]...)
}

func putOffset(dst []byte, offset uint32) {
	for i := 7; i >= 0; i-- {
		dst[i] = hexDigits[offset&0x0F]
		offset >>= 4
	}
}

func printable(b byte) byte {
	if IsPrintable(b) {
		return b
	}
	return '.'
}
