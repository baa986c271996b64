// Package hexdump renders memory as address-annotated hex with an ASCII
// sidebar, sixteen bytes per line in groups of four.
package hexdump

import (
	"fmt"
	"io"
	"strings"
)

const (
	BytesPerLine = 16
	groupSize    = 4
	indent       = "\t\t\t"
	hexDigits    = "0123456789ABCDEF"
)

// Lines formats data, whose first byte lives at addr. A trailing partial
// line is padded so that every line carries 16 byte columns and a
// 16 character sidebar.
func Lines(addr uint64, data []byte) []string {
	if len(data) == 0 {
		return nil
	}

	lines := make([]string, 0, (len(data)+BytesPerLine-1)/BytesPerLine)
	for off := 0; off < len(data); off += BytesPerLine {
		end := min(off+BytesPerLine, len(data))
		lines = append(lines, line(addr+uint64(off), data[off:end]))
	}
	return lines
}

// Dump writes Lines(addr, data) to w, one per row.
func Dump(w io.Writer, addr uint64, data []byte) error {
	for _, l := range Lines(addr, data) {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func line(addr uint64, row []byte) string {
	var (
		sb    strings.Builder
		alpha [BytesPerLine]byte
	)

	sb.WriteString(indent)
	fmt.Fprintf(&sb, "%08X", addr)

	for i := 0; i < BytesPerLine; i++ {
		if i%groupSize == 0 {
			sb.WriteByte(' ')
		}
		if i >= len(row) {
			sb.WriteString("   ")
			alpha[i] = '.'
			continue
		}
		b := row[i]
		sb.WriteByte(' ')
		sb.WriteByte(hexDigits[b>>4])
		sb.WriteByte(hexDigits[b&0xf])
		alpha[i] = printable(b)
	}

	sb.WriteString("\t|")
	sb.Write(alpha[:])
	sb.WriteByte('|')
	return sb.String()
}

// printable keeps the sidebar 7-bit clean; anything from 0xA0 up is
// rendered as a dot along with control characters.
func printable(b byte) byte {
	if b >= 0x20 && b < 0x7f {
		return b
	}
	return '.'
}
