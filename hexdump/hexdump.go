package hexdump

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"sigmem/coloransi"
	"sigmem/pattern"
)

// Match marks the bytes a signature matched so they can be highlighted.
// Offset is relative to the dumped data.
type Match struct {
	Offset  int
	Pattern pattern.Pattern
}

func (m *Match) covers(pos int) (inside, wildcard bool) {
	if m == nil || pos < m.Offset || pos >= m.Offset+m.Pattern.Len() {
		return false, false
	}
	return true, m.Pattern.IsWildcard(pos - m.Offset)
}

// Options defines options for customizing the hexdump output
type Options struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// StartOffset is the value printed in the offset column for the first byte
	StartOffset uint64

	// OffsetWidth is the width of the offset column in hex digits
	OffsetWidth int

	// Match, when set, is highlighted; wildcard positions use WildcardColor
	Match *Match

	// NoColor disables ANSI escape sequences
	NoColor bool

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	ZeroColor         coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	HighlightColor    coloransi.ColorCode
	HighlightBgColor  coloransi.ColorCode
	WildcardColor     coloransi.ColorCode
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() Options {
	return Options{
		BytesPerLine:      16,
		GroupSize:         1,
		ShowASCII:         true,
		OffsetWidth:       8,
		OffsetColor:       coloransi.Cyan,
		HexColor:          coloransi.Green,
		ASCIIColor:        coloransi.White,
		ZeroColor:         coloransi.BrightBlack,
		NonPrintableColor: coloransi.Red,
		HighlightColor:    coloransi.Black,
		HighlightBgColor:  coloransi.Yellow,
		WildcardColor:     coloransi.ColorOrange,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options Options) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options Options) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 8
	}

	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		end := offset + options.BytesPerLine
		if end > len(data) {
			end = len(data)
		}
		formatLine(writer, data[offset:end], offset, options)
	}
}

// formatLine writes one line: offset, hex groups, padding and the ASCII column
func formatLine(writer io.Writer, line []byte, lineOffset int, options Options) {
	offsetStr := fmt.Sprintf("%0"+strconv.Itoa(options.OffsetWidth)+"x", options.StartOffset+uint64(lineOffset))
	fmt.Fprint(writer, options.paint(options.OffsetColor, 0, offsetStr), "  ")

	var groups []string
	var group strings.Builder
	for i, b := range line {
		group.WriteString(options.paintByte(b, lineOffset+i, fmt.Sprintf("%02x", b), false))
		if (i+1)%options.GroupSize == 0 || i == len(line)-1 {
			groups = append(groups, group.String())
			group.Reset()
		}
	}
	fmt.Fprint(writer, strings.Join(groups, " "))

	if !options.ShowASCII {
		fmt.Fprintln(writer)
		return
	}

	// Keep the ASCII column aligned on a short last line
	if missing := options.BytesPerLine - len(line); missing > 0 {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		padding := missing*2 + fullGroups - len(groups)
		fmt.Fprint(writer, strings.Repeat(" ", padding))
	}

	fmt.Fprint(writer, "  |")
	for i, b := range line {
		c := "."
		if isPrintable(b) {
			c = string(rune(b))
		}
		fmt.Fprint(writer, options.paintByte(b, lineOffset+i, c, true))
	}
	fmt.Fprintln(writer, "|")
}

// paintByte colours one byte depending on whether it is part of the match
func (o Options) paintByte(b byte, pos int, text string, ascii bool) string {
	inside, wildcard := o.Match.covers(pos)
	switch {
	case inside && wildcard:
		return o.paint(o.WildcardColor, 0, text)
	case inside:
		return o.paint(o.HighlightColor, o.HighlightBgColor, text)
	case b == 0:
		return o.paint(o.ZeroColor, 0, text)
	case !ascii:
		return o.paint(o.HexColor, 0, text)
	case !isPrintable(b):
		return o.paint(o.NonPrintableColor, 0, text)
	}
	return o.paint(o.ASCIIColor, 0, text)
}

func isPrintable(b byte) bool {
	return b >= 0x20 && b < 0x7F
}

func (o Options) paint(fg, bg coloransi.ColorCode, text string) string {
	if o.NoColor {
		return text
	}
	if bg != 0 {
		return coloransi.Color(fg, bg, text)
	}
	return coloransi.Foreground(fg, text)
}

// DumpMatch dumps data with the match at offset highlighted
func DumpMatch(data []byte, startOffset uint64, offset int, p pattern.Pattern, noColor bool) string {
	options := DefaultOptions()
	options.StartOffset = startOffset
	options.Match = &Match{Offset: offset, Pattern: p}
	options.NoColor = noColor
	return Dump(data, options)
}
