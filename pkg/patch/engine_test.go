package patch

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/redactor-ai/pkg/document"
)

func newEngine(t *testing.T, markup string) *Engine {
	t.Helper()
	return NewEngine(document.ParseMarkdown(markup, nil), Config{})
}

// TestEngineReadFull проверяет чтение всего документа.
func TestEngineReadFull(t *testing.T) {
	e := newEngine(t, "# Title\n\nBody **bold** text")

	res := e.Read(ReadRequest{Scope: ScopeFull})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "# Title\n\nBody **bold** text", res.Content)
	assert.Equal(t, e.Document().Length(), res.DocumentLength)
	assert.False(t, res.Truncated)
}

// TestEngineReadRangeClamped: границы диапазона ограничиваются документом.
func TestEngineReadRangeClamped(t *testing.T) {
	e := newEngine(t, "Hello")

	res := e.Read(ReadRequest{Scope: ScopeRange, Start: -10, End: 1000})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Hello", res.Content)
}

// TestEngineReadRangeInverted: start > end после ограничения — ошибка.
func TestEngineReadRangeInverted(t *testing.T) {
	e := newEngine(t, "Hello")

	res := e.Read(ReadRequest{Scope: ScopeRange, Start: 4, End: 2})
	assert.Equal(t, StatusError, res.Status)
	assert.NotEmpty(t, res.Error)
}

// TestEngineReadTruncated: чтение длинного документа усекается с маркером.
func TestEngineReadTruncated(t *testing.T) {
	e := NewEngine(document.NewFromText(strings.Repeat("a", 100), nil), Config{MaxReadChars: 10})

	res := e.Read(ReadRequest{Scope: ScopeFull})
	require.Equal(t, StatusSuccess, res.Status)
	assert.True(t, res.Truncated)
	assert.Equal(t, "aaaaaaaaaa"+document.TruncationMarker, res.Content)
}

// TestEngineReadSelection: чтение выделения и ошибка без выделения.
func TestEngineReadSelection(t *testing.T) {
	e := newEngine(t, "Hello World")

	res := e.Read(ReadRequest{Scope: ScopeSelection})
	assert.Equal(t, StatusError, res.Status)

	e.SetSelection(6, 11)
	res = e.Read(ReadRequest{Scope: ScopeSelection})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "World", res.Content)
}

// TestEngineApplyFullRoundTrip: Read full -> Apply full тем же контентом
// воспроизводит документ (разметка проходит через импортёр).
func TestEngineApplyFullRoundTrip(t *testing.T) {
	src := "# Title\n\nBody **bold** and *italic*\n\n- item one\n- item two"
	e := newEngine(t, src)

	exported := e.Read(ReadRequest{Scope: ScopeFull}).Content
	res := e.Apply(context.Background(), ApplyRequest{Content: exported, Target: TargetFull})
	require.Equal(t, StatusSuccess, res.Status)

	assert.Equal(t, exported, e.Read(ReadRequest{Scope: ScopeFull}).Content)
}

// TestEngineApplyPlainKeepsFormatting: plain замена через search
// сохраняет форматирование перекрытия.
func TestEngineApplyPlainKeepsFormatting(t *testing.T) {
	doc := document.NewFromText("Hello World", document.Style(document.AttrBold, "true"))
	e := NewEngine(doc, Config{})

	res := e.Apply(context.Background(), ApplyRequest{
		Content: "Universe",
		Target:  TargetSearch,
		Search:  "World",
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Replacements)
	assert.Equal(t, "Hello Universe", doc.PlainText())
	for i := 0; i < doc.Length(); i++ {
		assert.True(t, doc.StyleAt(i).Has(document.AttrBold), "offset %d", i)
	}
}

// TestEngineApplySearchAll: occurrence=all заменяет все вхождения,
// порядок применения с конца не ломает смещения.
func TestEngineApplySearchAll(t *testing.T) {
	doc := document.NewFromText("foo bar foo baz foo", nil)
	e := NewEngine(doc, Config{})

	res := e.Apply(context.Background(), ApplyRequest{
		Content:    "qux",
		Target:     TargetSearch,
		Search:     "foo",
		Occurrence: OccurrenceAll,
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 3, res.Replacements)
	assert.Equal(t, "qux bar qux baz qux", doc.PlainText())
}

// TestEngineApplyZeroMatch: ноль совпадений — успех с подсказкой.
func TestEngineApplyZeroMatch(t *testing.T) {
	e := newEngine(t, "some text")

	res := e.Apply(context.Background(), ApplyRequest{
		Content: "replacement",
		Target:  TargetSearch,
		Search:  "absent fragment",
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, 0, res.Replacements)
	assert.Equal(t, ZeroMatchHint, res.Hint)
}

// TestEngineApplyBeginningEnd: вставка в начало и конец документа.
func TestEngineApplyBeginningEnd(t *testing.T) {
	doc := document.NewFromText("Body", nil)
	e := NewEngine(doc, Config{})

	res := e.Apply(context.Background(), ApplyRequest{Content: "Intro. ", Target: TargetBeginning})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Intro. Body", doc.PlainText())

	res = e.Apply(context.Background(), ApplyRequest{Content: " Outro.", Target: TargetEnd})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Intro. Body Outro.", doc.PlainText())
}

// TestEngineApplyRange: замена по явному диапазону с ограничением границ.
func TestEngineApplyRange(t *testing.T) {
	doc := document.NewFromText("0123456789", nil)
	e := NewEngine(doc, Config{})

	res := e.Apply(context.Background(), ApplyRequest{
		Content: "XY",
		Target:  TargetRange,
		Start:   2,
		End:     6,
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "01XY6789", doc.PlainText())

	// Выход за границы ограничивается, а не падает
	res = e.Apply(context.Background(), ApplyRequest{
		Content: "tail",
		Target:  TargetRange,
		Start:   6,
		End:     1000,
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "01XY67tail", doc.PlainText())
}

// TestEngineApplyRangeInverted: перевёрнутый диапазон — ошибка.
func TestEngineApplyRangeInverted(t *testing.T) {
	e := newEngine(t, "Hello")

	res := e.Apply(context.Background(), ApplyRequest{
		Content: "x",
		Target:  TargetRange,
		Start:   4,
		End:     1,
	})
	assert.Equal(t, StatusError, res.Status)
}

// TestEngineApplySelection: правка по выделению.
func TestEngineApplySelection(t *testing.T) {
	doc := document.NewFromText("Hello World", nil)
	e := NewEngine(doc, Config{})

	res := e.Apply(context.Background(), ApplyRequest{Content: "x", Target: TargetSelection})
	assert.Equal(t, StatusError, res.Status)

	e.SetSelection(6, 11)
	res = e.Apply(context.Background(), ApplyRequest{Content: "Universe", Target: TargetSelection})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Hello Universe", doc.PlainText())
}

// TestEngineApplyMarkupReplacesStructure: разметка в контенте меняет
// стили абзацев, а не вставляется буквально.
func TestEngineApplyMarkupReplacesStructure(t *testing.T) {
	e := newEngine(t, "plain paragraph")
	doc := e.Document()

	res := e.Apply(context.Background(), ApplyRequest{
		Content: "## New Title\n\nNew body",
		Target:  TargetFull,
	})
	require.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "New Title\nNew body", doc.PlainText())
	assert.Equal(t, document.ParaHeading2, doc.ParagraphStyle(0))
	assert.Equal(t, document.ParaDefault, doc.ParagraphStyle(1))
}

// TestEngineApplyUnknownTarget: неизвестная цель — ошибка.
func TestEngineApplyUnknownTarget(t *testing.T) {
	e := newEngine(t, "text")

	res := e.Apply(context.Background(), ApplyRequest{Content: "x", Target: "somewhere"})
	assert.Equal(t, StatusError, res.Status)
}
