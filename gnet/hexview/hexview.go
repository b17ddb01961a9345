// Package hexview 将二进制区域渲染为定宽的十六进制行，并附带 ASCII 列。
package hexview

import (
	"strings"
)

const DefaultWidth = 32

const (
	placeholder = ".."
	hexDigits   = "0123456789ABCDEF"

	GlyphNewline     = '␊'
	GlyphReturn      = '␍'
	GlyphNull        = '␀'
	GlyphReplacement = '�'
)

var glyphs [256]rune

func init() {
	for i := range glyphs {
		glyphs[i] = GlyphReplacement
	}
	for c := 'a'; c <= 'z'; c++ {
		glyphs[c] = c
	}
	for c := 'A'; c <= 'Z'; c++ {
		glyphs[c] = c
	}
	for c := '0'; c <= '9'; c++ {
		glyphs[c] = c
	}
	for _, c := range ":;@/\\|?!+*.,-_'\"=(){}[]&>< " {
		glyphs[c] = c
	}
	glyphs['\n'] = GlyphNewline
	glyphs['\r'] = GlyphReturn
	glyphs[0] = GlyphNull
}

// Glyph 返回 b 在 ASCII 列中显示的字符。
func Glyph(b byte) rune {
	return glyphs[b]
}

// Dumper 按 Width 字节切分数据，Width 为零时使用 DefaultWidth。
type Dumper struct {
	Width int
}

func (d Dumper) width() int {
	if d.Width <= 0 {
		return DefaultWidth
	}
	return d.Width
}

// Rows 每 Width 字节渲染一行，不含换行符。末行不足时十六进制部分以 ".." 补齐，ASCII 列不补。
func (d Dumper) Rows(data []byte) []string {
	width := d.width()
	rows := make([]string, 0, (len(data)+width-1)/width)
	for start := 0; start < len(data); start += width {
		end := start + width
		if end > len(data) {
			end = len(data)
		}
		rows = append(rows, renderRow(data[start:end], width))
	}
	return rows
}

func (d Dumper) Dump(data []byte) string {
	var sb strings.Builder
	for _, row := range d.Rows(data) {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Dump 以默认行宽渲染 data。
func Dump(data []byte) string {
	return Dumper{}.Dump(data)
}

func renderRow(chunk []byte, width int) string {
	var sb strings.Builder
	sb.Grow(width*3 + len(chunk)*3 + 3)
	for i := 0; i < width; i++ {
		if i < len(chunk) {
			sb.WriteByte(hexDigits[chunk[i]>>4])
			sb.WriteByte(hexDigits[chunk[i]&0x0F])
		} else {
			sb.WriteString(placeholder)
		}
		sb.WriteByte(' ')
	}
	sb.WriteString(" |")
	for _, b := range chunk {
		sb.WriteRune(glyphs[b])
	}
	sb.WriteByte('|')
	return sb.String()
}
