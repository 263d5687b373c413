package patch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/redactor-ai/pkg/document"
)

// TestApplyTextDiffReplaceTail проверяет замену с расширением:
// перекрытие заменяется на месте, хвост вставляется с наследованием стиля.
func TestApplyTextDiffReplaceTail(t *testing.T) {
	bold := document.Style(document.AttrBold, "true")
	doc := document.NewFromText("Hello World", bold)

	cursor, err := applyTextDiff(context.Background(), doc, 0, 11, "Hello Universe", DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Hello Universe", doc.PlainText())
	assert.Equal(t, 14, cursor)
	// Вставленный хвост унаследовал стиль последнего перекрытия
	for i := 0; i < doc.Length(); i++ {
		assert.True(t, doc.StyleAt(i).Has(document.AttrBold), "offset %d", i)
	}
}

// TestApplyTextDiffLengthLaw проверяет закон длины:
// len' == len - (end-start) + len(newText).
func TestApplyTextDiffLengthLaw(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		newText    string
	}{
		{"shrink", "abcdefgh", 2, 6, "XY"},
		{"grow", "abcdefgh", 2, 4, "XYZQW"},
		{"same length", "abcdefgh", 0, 8, "12345678"},
		{"pure insert", "abcdefgh", 3, 3, "ins"},
		{"pure delete", "abcdefgh", 3, 6, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := document.NewFromText(tt.text, nil)
			oldLen := doc.Length()

			_, err := applyTextDiff(context.Background(), doc, tt.start, tt.end, tt.newText, DiffOptions{})
			require.NoError(t, err)

			want := oldLen - (tt.end - tt.start) + len([]rune(tt.newText))
			assert.Equal(t, want, doc.Length())
		})
	}
}

// TestApplyTextDiffNoOp проверяет, что замена текста на самого себя
// не меняет ни текст, ни стили.
func TestApplyTextDiffNoOp(t *testing.T) {
	doc := document.New()
	require.NoError(t, doc.InsertAt(0, "abc", document.Style(document.AttrColor, "red")))
	require.NoError(t, doc.InsertAt(3, "def", document.Style(document.AttrColor, "blue")))

	_, err := applyTextDiff(context.Background(), doc, 0, 6, "abcdef", DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, "abcdef", doc.PlainText())
	assert.Equal(t, "red", doc.StyleAt(0)[document.AttrColor])
	assert.Equal(t, "red", doc.StyleAt(2)[document.AttrColor])
	assert.Equal(t, "blue", doc.StyleAt(3)[document.AttrColor])
	assert.Equal(t, "blue", doc.StyleAt(5)[document.AttrColor])
}

// TestApplyTextDiffKeepsPerPositionStyles проверяет позиционное
// сохранение стилей при замене одинаковой длины.
func TestApplyTextDiffKeepsPerPositionStyles(t *testing.T) {
	colors := []string{"c1", "c2", "c3", "c4", "c5"}
	doc := document.New()
	for i, r := range "ABCDE" {
		require.NoError(t, doc.InsertAt(i, string(r), document.Style(document.AttrColor, colors[i])))
	}

	_, err := applyTextDiff(context.Background(), doc, 0, 5, "PQRST", DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, "PQRST", doc.PlainText())
	for i, want := range colors {
		assert.Equal(t, want, doc.StyleAt(i)[document.AttrColor], "offset %d", i)
	}
}

// TestApplyTextDiffTailInheritsLastOverlap: при удлинении хвост
// наследует стиль последнего перекрывшегося символа.
func TestApplyTextDiffTailInheritsLastOverlap(t *testing.T) {
	colors := []string{"c1", "c2", "c3"}
	doc := document.New()
	for i, r := range "ABC" {
		require.NoError(t, doc.InsertAt(i, string(r), document.Style(document.AttrColor, colors[i])))
	}

	_, err := applyTextDiff(context.Background(), doc, 0, 3, "MNOPQ", DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, "MNOPQ", doc.PlainText())
	want := []string{"c1", "c2", "c3", "c3", "c3"}
	for i, c := range want {
		assert.Equal(t, c, doc.StyleAt(i)[document.AttrColor], "offset %d", i)
	}
}

// TestApplyTextDiffPureInsertInheritsLeftNeighbour: вставка в позицию
// без перекрытия наследует стиль символа слева.
func TestApplyTextDiffPureInsertInheritsLeftNeighbour(t *testing.T) {
	doc := document.NewFromText("ab", document.Style(document.AttrItalic, "true"))

	_, err := applyTextDiff(context.Background(), doc, 2, 2, "cd", DiffOptions{})
	require.NoError(t, err)

	assert.Equal(t, "abcd", doc.PlainText())
	assert.True(t, doc.StyleAt(2).Has(document.AttrItalic))
	assert.True(t, doc.StyleAt(3).Has(document.AttrItalic))
}

// TestApplyTextDiffCancellation: флаг отмены прерывает правку
// на чекпоинте, частичное применение допустимо.
func TestApplyTextDiffCancellation(t *testing.T) {
	src := make([]rune, 100)
	repl := make([]rune, 100)
	for i := range src {
		src[i] = 'a'
		repl[i] = 'b'
	}
	doc := document.NewFromText(string(src), nil)

	_, err := applyTextDiff(context.Background(), doc, 0, 100, string(repl), DiffOptions{
		YieldEvery: 10,
		Cancelled:  func() bool { return true },
	})
	require.ErrorIs(t, err, context.Canceled)

	// Первый чекпоинт срабатывает после 10 символов
	assert.Equal(t, "bbbbbbbbbb", doc.PlainText()[:10])
	assert.Equal(t, 'a', doc.RuneAt(20))
}

// TestApplyTextDiffContextCancel: отмена контекста прерывает правку.
func TestApplyTextDiffContextCancel(t *testing.T) {
	src := make([]rune, 50)
	repl := make([]rune, 50)
	for i := range src {
		src[i] = 'x'
		repl[i] = 'y'
	}
	doc := document.NewFromText(string(src), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := applyTextDiff(ctx, doc, 0, 50, string(repl), DiffOptions{YieldEvery: 5})
	require.ErrorIs(t, err, context.Canceled)
}

// TestApplyTextDiffYield проверяет периодический вызов Yield.
func TestApplyTextDiffYield(t *testing.T) {
	src := make([]rune, 45)
	repl := make([]rune, 45)
	for i := range src {
		src[i] = 'a'
		repl[i] = 'b'
	}
	doc := document.NewFromText(string(src), nil)

	yields := 0
	_, err := applyTextDiff(context.Background(), doc, 0, 45, string(repl), DiffOptions{
		YieldEvery: 10,
		Yield:      func() { yields++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 4, yields)
}
