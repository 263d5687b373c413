// Резолвер литерального поиска.
//
// Модель присылает search строки в "своём" диалекте: с \r\n, с двойными
// переводами строк, с markdown разметкой, которой в документе нет.
// Резолвер генерирует упорядоченный список литеральных кандидатов и
// берёт первый, который встречается в документе хотя бы один раз.
// Частичные совпадения разных кандидатов никогда не объединяются.
package patch

import (
	"strings"
	"unicode"

	"github.com/ilkoid/redactor-ai/pkg/document"
)

// Range — найденное вхождение в документе (смещения в рунах).
type Range struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Resolver ищет литеральные вхождения search строки в документе.
//
// Plain текст документа кешируется между вызовами: серия поисков по
// неизменному документу не перечитывает все руны заново. После любой
// правки кеш должен быть сброшен через Invalidate().
type Resolver struct {
	doc document.Document

	text  []rune
	valid bool
}

// NewResolver создаёт резолвер над документом.
func NewResolver(doc document.Document) *Resolver {
	return &Resolver{doc: doc}
}

// Invalidate сбрасывает кеш plain текста документа.
func (r *Resolver) Invalidate() {
	r.text = nil
	r.valid = false
}

// plainText возвращает кешированные руны документа.
func (r *Resolver) plainText() []rune {
	if !r.valid {
		r.text = []rune(r.doc.PlainText())
		r.valid = true
	}
	return r.text
}

// candidates генерирует упорядоченный список литеральных кандидатов:
//
//  1. Сырая строка как есть
//  2. Нормализованная (все диалекты переводов строк схлопнуты в \n)
//  3. Обратные разворачивания нормализованной в другие диалекты
//  4. Разметка, отрендеренная в plain текст, и та же лестница
//     диалектов над ней (как текст выглядит в документе)
//
// Дубликаты удаляются с сохранением порядка.
func candidates(search string) []string {
	var result []string
	seen := make(map[string]struct{})

	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		result = append(result, s)
	}

	ladder := func(form string) {
		// Как есть
		add(form)

		// Нормализация диалектов переводов строк
		normalized := form
		normalized = strings.ReplaceAll(normalized, "\r\n\r\n", "\n")
		normalized = strings.ReplaceAll(normalized, "\r\n", "\n")
		normalized = strings.ReplaceAll(normalized, "\n\n", "\n")
		normalized = strings.ReplaceAll(normalized, "\r", "\n")
		add(normalized)

		// Обратные разворачивания в другие диалекты
		if strings.Contains(normalized, "\n") {
			for _, dialect := range []string{"\n\n", "\r\n", "\r\n\r\n", "\r", "\n\r"} {
				add(strings.ReplaceAll(normalized, "\n", dialect))
			}
		}
		add(normalized + "\n")
		add(normalized + "\n\n")
	}

	ladder(search)

	// Разметка -> plain: документ хранит текст без маркеров, поэтому
	// plain форма проходит ту же лестницу диалектов, что и сырая
	if HasMarkup(search) {
		ladder(document.MarkdownToPlain(search))
	}

	return result
}

// Resolve возвращает первый кандидат с хотя бы одним вхождением
// и все его вхождения. Если ни один кандидат не найден — nil.
func (r *Resolver) Resolve(search string, caseSensitive bool) (string, []Range) {
	text := r.plainText()

	for _, cand := range candidates(search) {
		if matches := occurrences(text, []rune(cand), 0, 0, caseSensitive); len(matches) > 0 {
			return cand, matches
		}
	}
	return "", nil
}

// Find ищет вхождения начиная со смещения start, не более limit штук.
// limit <= 0 означает без ограничения.
func (r *Resolver) Find(search string, start, limit int, caseSensitive bool) []Range {
	text := r.plainText()
	if start < 0 {
		start = 0
	}

	for _, cand := range candidates(search) {
		if matches := occurrences(text, []rune(cand), start, limit, caseSensitive); len(matches) > 0 {
			return matches
		}
	}
	return nil
}

// occurrences находит непересекающиеся вхождения needle в text
// начиная со смещения from (смещения в рунах).
func occurrences(text, needle []rune, from, limit int, caseSensitive bool) []Range {
	if len(needle) == 0 || from >= len(text) && len(text) > 0 {
		return nil
	}

	var result []Range
	for i := from; i+len(needle) <= len(text); {
		if runesEqual(text[i:i+len(needle)], needle, caseSensitive) {
			result = append(result, Range{
				Start: i,
				End:   i + len(needle),
				Text:  string(text[i : i+len(needle)]),
			})
			if limit > 0 && len(result) >= limit {
				break
			}
			i += len(needle)
			continue
		}
		i++
	}
	return result
}

func runesEqual(a, b []rune, caseSensitive bool) bool {
	for i := range b {
		x, y := a[i], b[i]
		if !caseSensitive {
			x, y = unicode.ToLower(x), unicode.ToLower(y)
		}
		if x != y {
			return false
		}
	}
	return true
}
