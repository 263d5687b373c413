// Package utils предоставляет вспомогательные функции для обработки данных.
//
// Включает утилиты для очистки аргументов инструментов от markdown-обёртки
// и извлечения JSON из смешанного вывода LLM.
package utils

import (
	"strings"
)

// CleanJsonBlock удаляет markdown-обёртку вокруг JSON.
//
// LLM иногда возвращает аргументы инструмента обёрнутыми в кодовый блок:
//
//	```json
//	{"key": "value"}
//	```
//
// Эта функция очищает такие обёртки, возвращая чистый JSON.
func CleanJsonBlock(s string) string {
	s = strings.TrimSpace(s)

	// Удаляем ```json в начале
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```Json")
	s = strings.TrimPrefix(s, "```")

	// Удаляем ``` в конце
	s = strings.TrimSuffix(s, "```")

	// Одинарные backticks
	s = strings.TrimPrefix(s, "`")
	s = strings.TrimSuffix(s, "`")

	return strings.TrimSpace(s)
}

// ExtractJSON пытается извлечь JSON объект из строки.
//
// LLM иногда присылает JSON аргументов вместе с пояснительным текстом.
// Функция находит первый сбалансированный JSON-объект в тексте.
//
// Возвращает пустую строку если JSON-объект не найден.
//
// ВНИМАНИЕ: не валидирует JSON, только извлекает его по скобкам.
// Для валидации используйте json.Unmarshal().
func ExtractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	// Элемент массива не извлекаем (пропускаем [{)
	if start > 0 && s[start-1] == '[' {
		return ""
	}

	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s[start:]
}
