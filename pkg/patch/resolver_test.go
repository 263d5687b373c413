package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/redactor-ai/pkg/document"
)

// TestCandidatesOrder проверяет порядок и дедупликацию кандидатов:
// сырая строка всегда первая, дубликаты не повторяются.
func TestCandidatesOrder(t *testing.T) {
	cands := candidates("Hello\r\n\r\nWorld")

	require.NotEmpty(t, cands)
	assert.Equal(t, "Hello\r\n\r\nWorld", cands[0])
	assert.Contains(t, cands, "Hello\nWorld")
	assert.Contains(t, cands, "Hello\r\nWorld")
	assert.Contains(t, cands, "Hello\n\nWorld")

	seen := map[string]int{}
	for _, c := range cands {
		seen[c]++
	}
	for c, n := range seen {
		assert.Equal(t, 1, n, "duplicate candidate %q", c)
	}
}

// TestResolveNewlineDialects: поиск с \r\n находит текст,
// хранящийся в документе с \n.
func TestResolveNewlineDialects(t *testing.T) {
	doc := document.NewFromText("First line\nSecond line", nil)
	r := NewResolver(doc)

	cand, matches := r.Resolve("First line\r\nSecond line", true)
	require.Len(t, matches, 1)
	assert.Equal(t, "First line\nSecond line", cand)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, doc.Length(), matches[0].End)
}

// TestResolveDoubleNewline: модель прислала абзацы через пустую строку,
// в документе они разделены одиночным \n.
func TestResolveDoubleNewline(t *testing.T) {
	doc := document.NewFromText("alpha\nbeta", nil)
	r := NewResolver(doc)

	cand, matches := r.Resolve("alpha\n\nbeta", true)
	require.Len(t, matches, 1)
	assert.Equal(t, "alpha\nbeta", cand)
}

// TestResolveMarkupFallback: search с разметкой, которой нет в
// документе, находится через рендер в plain текст.
func TestResolveMarkupFallback(t *testing.T) {
	doc := document.NewFromText("Intro\nHeading\nBody", nil)
	r := NewResolver(doc)

	cand, matches := r.Resolve("## Heading", true)
	require.Len(t, matches, 1)
	assert.Equal(t, "Heading", cand)
	assert.Equal(t, 6, matches[0].Start)
	assert.Equal(t, 13, matches[0].End)
}

// TestResolveMarkupPlainDialects: plain форма разметки проходит ту же
// лестницу диалектов. Модель прислала заголовки с одиночными \n,
// в документе абзацы разделены двойным переводом строки.
func TestResolveMarkupPlainDialects(t *testing.T) {
	doc := document.NewFromText("A\n\nB", nil)
	r := NewResolver(doc)

	cand, matches := r.Resolve("## A\n## B", true)
	require.Len(t, matches, 1)
	assert.Equal(t, "A\n\nB", cand)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, 4, matches[0].End)
}

// TestResolveFirstCandidateWins: если сырая строка найдена,
// более поздние кандидаты не рассматриваются.
func TestResolveFirstCandidateWins(t *testing.T) {
	// И сырой вариант с \r\n, и нормализованный присутствуют
	doc := document.NewFromText("a\r\nb and a\nb", nil)
	r := NewResolver(doc)

	cand, matches := r.Resolve("a\r\nb", true)
	require.Len(t, matches, 1)
	assert.Equal(t, "a\r\nb", cand)
	assert.Equal(t, 0, matches[0].Start)
}

// TestResolveNoMatch возвращает пустой результат без ошибки.
func TestResolveNoMatch(t *testing.T) {
	doc := document.NewFromText("some text", nil)
	r := NewResolver(doc)

	cand, matches := r.Resolve("absent", true)
	assert.Empty(t, cand)
	assert.Nil(t, matches)
}

// TestResolveCaseInsensitive проверяет регистронезависимый поиск.
func TestResolveCaseInsensitive(t *testing.T) {
	doc := document.NewFromText("Hello World", nil)
	r := NewResolver(doc)

	_, matches := r.Resolve("hello", false)
	require.Len(t, matches, 1)
	assert.Equal(t, "Hello", matches[0].Text)

	_, matches = r.Resolve("hello", true)
	assert.Nil(t, matches)
}

// TestFindStartAndLimit проверяет смещение начала и лимит вхождений.
func TestFindStartAndLimit(t *testing.T) {
	doc := document.NewFromText("foo bar foo baz foo", nil)
	r := NewResolver(doc)

	all := r.Find("foo", 0, 0, true)
	require.Len(t, all, 3)
	assert.Equal(t, 0, all[0].Start)
	assert.Equal(t, 8, all[1].Start)
	assert.Equal(t, 16, all[2].Start)

	fromSecond := r.Find("foo", 1, 0, true)
	require.Len(t, fromSecond, 2)
	assert.Equal(t, 8, fromSecond[0].Start)

	limited := r.Find("foo", 0, 2, true)
	assert.Len(t, limited, 2)
}

// TestOccurrencesNonOverlapping: вхождения не пересекаются.
func TestOccurrencesNonOverlapping(t *testing.T) {
	doc := document.NewFromText("aaaa", nil)
	r := NewResolver(doc)

	matches := r.Find("aa", 0, 0, true)
	require.Len(t, matches, 2)
	assert.Equal(t, 0, matches[0].Start)
	assert.Equal(t, 2, matches[0].End)
	assert.Equal(t, 2, matches[1].Start)
	assert.Equal(t, 4, matches[1].End)
}

// TestFindRuneOffsets: смещения считаются в рунах, не в байтах.
func TestFindRuneOffsets(t *testing.T) {
	doc := document.NewFromText("привет мир", nil)
	r := NewResolver(doc)

	matches := r.Find("мир", 0, 0, true)
	require.Len(t, matches, 1)
	assert.Equal(t, 7, matches[0].Start)
	assert.Equal(t, 10, matches[0].End)
	assert.Equal(t, "мир", matches[0].Text)
}

// TestResolverCacheInvalidation: после правки документа резолвер
// обязан видеть новый текст только после Invalidate().
func TestResolverCacheInvalidation(t *testing.T) {
	doc := document.NewFromText("старый текст", nil)
	r := NewResolver(doc)

	_, matches := r.Resolve("старый", true)
	require.Len(t, matches, 1)

	// Правка в обход движка: кеш резолвера устарел
	require.NoError(t, doc.DeleteRange(0, doc.Length()))
	require.NoError(t, doc.InsertAt(0, "новый текст", nil))

	_, stale := r.Resolve("новый", true)
	assert.Empty(t, stale)

	r.Invalidate()
	_, fresh := r.Resolve("новый", true)
	assert.Len(t, fresh, 1)
}
