// Определение разметки в тексте от модели.
package patch

import "strings"

// inlinePatterns — фрагменты, встречающиеся в любом месте текста.
var inlinePatterns = []string{
	"**",
	"__",
	"``",
	"</",
	"<b>",
	"<i>",
	"<u>",
	"<html",
	"<body",
	"<!DOCTYPE",
	"|---",
	"- [ ]",
	"- [x]",
}

// linePatterns — префиксы, значимые только в начале строки.
var linePatterns = []string{
	"# ",
	"## ",
	"### ",
	"#### ",
	"##### ",
	"###### ",
	"- ",
	"* ",
	"> ",
	"| ",
}

// HasMarkup определяет, содержит ли контент разметку.
//
// Фиксированный список паттернов, без эвристик: plain текст с
// редкой звёздочкой не должен уходить в импортёр разметки, а
// заголовок "## ..." не должен вставляться в документ буквально.
func HasMarkup(content string) bool {
	for _, p := range inlinePatterns {
		if strings.Contains(content, p) {
			return true
		}
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		for _, p := range linePatterns {
			if strings.HasPrefix(trimmed, p) {
				return true
			}
		}
	}

	return false
}
