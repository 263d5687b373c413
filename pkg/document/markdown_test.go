package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownParagraphStyles(t *testing.T) {
	tests := []struct {
		name      string
		markup    string
		wantText  string
		wantStyle string
	}{
		{"heading 1", "# Title", "Title", ParaHeading1},
		{"heading 2", "## Title", "Title", ParaHeading2},
		{"heading 6", "###### Title", "Title", ParaHeading6},
		{"bullet", "- item", "item", ParaListBullet},
		{"numbered", "12. item", "item", ParaListNumber},
		{"quote", "> quoted", "quoted", ParaQuote},
		{"plain", "just text", "just text", ParaDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseMarkdown(tt.markup, nil)
			assert.Equal(t, tt.wantText, d.PlainText())
			assert.Equal(t, tt.wantStyle, d.ParagraphStyle(0))
		})
	}
}

func TestParseMarkdownInline(t *testing.T) {
	d := ParseMarkdown("a **b** *c* `d`", nil)

	require.Equal(t, "a b c d", d.PlainText())

	assert.False(t, d.StyleAt(0).Has(AttrBold), "plain char")
	assert.True(t, d.StyleAt(2).Has(AttrBold), "bold char")
	assert.True(t, d.StyleAt(4).Has(AttrItalic), "italic char")
	assert.True(t, d.StyleAt(6).Has(AttrCode), "code char")
}

func TestParseMarkdownSharedStyleRuns(t *testing.T) {
	// Одинаковые комбинации атрибутов должны разделять один StyleRun
	d := ParseMarkdown("**ab** x **cd**", nil)

	require.Equal(t, "ab x cd", d.PlainText())
	st1 := d.StyleAt(0)
	st2 := d.StyleAt(5)
	assert.True(t, st1.Has(AttrBold))
	assert.True(t, st2.Has(AttrBold))
}

func TestParseMarkdownDropsBlankLines(t *testing.T) {
	d := ParseMarkdown("one\n\n\ntwo\r\nthree", nil)
	assert.Equal(t, "one\ntwo\nthree", d.PlainText())
	assert.Equal(t, 3, d.ParagraphCount())
}

func TestExportMarkdownRoundTrip(t *testing.T) {
	src := "## Report\n\nThe **quick** fox\n\n- first\n\n- second\n\n> note"
	d := ParseMarkdown(src, nil)

	out := ExportMarkdown(d, 0, d.Length())
	assert.Equal(t, src, out)
}

func TestExportMarkdownRange(t *testing.T) {
	d := ParseMarkdown("# Head\n\nbody text", nil)

	// Диапазон только второго абзаца
	start := len("Head\n")
	out := ExportMarkdown(d, start, d.Length())
	assert.Equal(t, "body text", out)
}

func TestMarkdownToPlain(t *testing.T) {
	tests := []struct {
		markup string
		want   string
	}{
		{"## Heading", "Heading"},
		{"**bold** and *italic*", "bold and italic"},
		{"line one\n\nline two", "line one\nline two"},
		{"- a\n- b", "a\nb"},
		{"plain\n\n", "plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MarkdownToPlain(tt.markup), "markup: %q", tt.markup)
	}
}

func TestTruncate(t *testing.T) {
	s, truncated := Truncate("hello", 3)
	assert.True(t, truncated)
	assert.True(t, strings.HasPrefix(s, "hel"))
	assert.True(t, strings.HasSuffix(s, TruncationMarker))

	s, truncated = Truncate("hello", 10)
	assert.False(t, truncated)
	assert.Equal(t, "hello", s)

	s, truncated = Truncate("hello", 0)
	assert.False(t, truncated)
	assert.Equal(t, "hello", s)
}
