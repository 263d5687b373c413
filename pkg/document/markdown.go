// Экспорт и импорт markdown разметки.
//
// Экспортёр сериализует стили абзацев (заголовки, списки, цитаты) в
// префиксы строк и символьные атрибуты (жирный, курсив, код) в inline
// маркеры. Импортёр выполняет обратное преобразование во фрагмент
// документа. Таблицы и HTML не интерпретируются — их строки переносятся
// как обычный текст.
package document

import (
	"strings"
)

// TruncationMarker добавляется к обрезанному экспорту.
const TruncationMarker = "\n[... truncated ...]"

// paraPrefixes — соответствие стиля абзаца markdown префиксу.
var paraPrefixes = []struct {
	style  string
	prefix string
}{
	{ParaHeading1, "# "},
	{ParaHeading2, "## "},
	{ParaHeading3, "### "},
	{ParaHeading4, "#### "},
	{ParaHeading5, "##### "},
	{ParaHeading6, "###### "},
	{ParaListBullet, "- "},
	{ParaQuote, "> "},
}

func prefixForStyle(style string) string {
	for _, p := range paraPrefixes {
		if p.style == style {
			return p.prefix
		}
	}
	return ""
}

func styleForPrefix(line string) (style, rest string) {
	for _, p := range paraPrefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.style, line[len(p.prefix):]
		}
	}
	// Нумерованный список: "1. ", "12. "
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' ' {
		return ParaListNumber, line[i+2:]
	}
	return ParaDefault, line
}

// ExportMarkdown сериализует диапазон [start, end) документа в markdown.
//
// Диапазон расширяется до границ пересекаемых абзацев не нужно:
// вызывающий код (pkg/patch) сам выравнивает диапазон по абзацам.
// Абзацы в выводе разделяются пустой строкой.
func ExportMarkdown(d Document, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > d.Length() {
		end = d.Length()
	}
	if start >= end && d.Length() > 0 {
		return ""
	}

	var parts []string
	for i := 0; i < d.ParagraphCount(); i++ {
		ps, pe := d.ParagraphSpan(i)
		// Пустые абзацы и абзацы вне диапазона пропускаем
		if ps == pe || pe <= start || ps >= end {
			continue
		}

		lo, hi := ps, pe
		if lo < start {
			lo = start
		}
		if hi > end {
			hi = end
		}

		parts = append(parts, prefixForStyle(d.ParagraphStyle(i))+renderInline(d, lo, hi))
	}

	return strings.Join(parts, "\n\n")
}

// renderInline сериализует символы [lo, hi) с inline маркерами.
//
// Маркеры закрываются в порядке, обратном открытию (LIFO), чтобы
// вложенность оставалась корректной.
func renderInline(d Document, lo, hi int) string {
	var b strings.Builder

	type markerState struct {
		attr   string
		marker string
	}
	markers := []markerState{
		{AttrBold, "**"},
		{AttrItalic, "*"},
		{AttrCode, "`"},
	}

	var open []markerState

	closeAll := func() {
		for i := len(open) - 1; i >= 0; i-- {
			b.WriteString(open[i].marker)
		}
		open = open[:0]
	}

	current := func(st StyleRun) []markerState {
		var want []markerState
		for _, m := range markers {
			if st.Has(m.attr) {
				want = append(want, m)
			}
		}
		return want
	}

	sameSet := func(a, b []markerState) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].attr != b[i].attr {
				return false
			}
		}
		return true
	}

	for i := lo; i < hi; i++ {
		want := current(d.StyleAt(i))
		if !sameSet(open, want) {
			closeAll()
			for _, m := range want {
				b.WriteString(m.marker)
			}
			open = append(open, want...)
		}
		b.WriteRune(d.RuneAt(i))
	}
	closeAll()

	return b.String()
}

// Truncate обрезает экспорт до max рун, добавляя маркер усечения.
// max <= 0 означает без ограничения.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 {
		return s, false
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s, false
	}
	return string(runes[:max]) + TruncationMarker, true
}

// ParseMarkdown разбирает markdown в фрагмент документа.
//
// Правила:
//   - пустые строки разделяют абзацы и сами абзацами не становятся
//   - префиксы #/##/.../-/>/"1. " задают стиль абзаца
//   - **жирный**, *курсив*, `код` задают символьные атрибуты
//   - одинаковые комбинации атрибутов разделяют один StyleRun
//
// base — стиль для символов без markdown атрибутов (может быть nil).
func ParseMarkdown(markup string, base StyleRun) *TextDocument {
	d := New()

	// Нормализуем переводы строк до '\n'
	markup = strings.ReplaceAll(markup, "\r\n", "\n")
	markup = strings.ReplaceAll(markup, "\r", "\n")

	// Кеш стилей: одинаковые комбинации атрибутов -> один StyleRun
	cache := map[string]StyleRun{}
	styleFor := func(bold, italic, code bool) StyleRun {
		if !bold && !italic && !code {
			return base
		}
		key := ""
		if bold {
			key += "b"
		}
		if italic {
			key += "i"
		}
		if code {
			key += "c"
		}
		if st, ok := cache[key]; ok {
			return st
		}
		st := make(StyleRun, len(base)+3)
		for k, v := range base {
			st[k] = v
		}
		if bold {
			st[AttrBold] = "true"
		}
		if italic {
			st[AttrItalic] = "true"
		}
		if code {
			st[AttrCode] = "true"
		}
		cache[key] = st
		return st
	}

	first := true
	offset := 0
	for _, line := range strings.Split(markup, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		paraStyle, rest := styleForPrefix(line)

		if !first {
			_ = d.InsertAt(offset, "\n", nil)
			offset++
		}
		first = false

		paraIdx := d.ParagraphIndexAt(offset)
		_ = d.SetParagraphStyle(paraIdx, paraStyle)

		// Inline разбор
		bold, italic, code := false, false, false
		runes := []rune(rest)
		for i := 0; i < len(runes); i++ {
			if runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '*' {
				bold = !bold
				i++
				continue
			}
			if runes[i] == '*' || runes[i] == '_' {
				italic = !italic
				continue
			}
			if runes[i] == '`' {
				code = !code
				continue
			}
			_ = d.InsertAt(offset, string(runes[i]), styleFor(bold, italic, code))
			offset++
		}
	}

	return d
}

// MarkdownToPlain рендерит markdown во фрагмент документа и возвращает
// его простой текст без хвостовых переводов строк.
//
// Используется резолвером поиска: модель часто присылает search с
// разметкой, которой в документе нет — рендер в plain восстанавливает
// текст так, как он выглядит в документе.
func MarkdownToPlain(markup string) string {
	return strings.TrimRight(ParseMarkdown(markup, nil).PlainText(), "\n")
}
