// Package prompt предоставляет функции для загрузки и рендеринга промптов.
package prompt

import (
	"fmt"
	"os"

	"github.com/ilkoid/redactor-ai/pkg/config"
)

// LoadEditorSystemPrompt загружает системный промпт редактора.
//
// Пытается загрузить промпт из файла {PromptsDir}/editor_system.yaml
// и отрендерить его с данными документа. Если файл не существует или
// ошибка загрузки — возвращает дефолтный промпт.
//
// Дефолтный промпт базовый и может быть переопределён через YAML файл
// для кастомизации поведения редактора под конкретные задачи.
func LoadEditorSystemPrompt(cfg *config.AppConfig, data ContextData) (string, error) {
	// 1. Формируем путь к файлу промпта
	promptPath := fmt.Sprintf("%s/editor_system.yaml", cfg.App.PromptsDir)

	// 2. Проверяем существование файла
	if _, err := os.Stat(promptPath); os.IsNotExist(err) {
		// Файл не существует — возвращаем дефолтный промпт
		return getDefaultEditorPrompt(), nil
	}

	// 3. Загружаем файл
	pf, err := Load(promptPath)
	if err != nil {
		return "", fmt.Errorf("failed to load editor prompt from %s: %w", promptPath, err)
	}

	// 4. Проверяем наличие сообщений
	if len(pf.Messages) == 0 {
		return getDefaultEditorPrompt(), nil
	}

	// 5. Рендерим первое (системное) сообщение с данными документа
	rendered, err := pf.RenderMessages(data)
	if err != nil {
		return "", fmt.Errorf("failed to render editor prompt: %w", err)
	}
	if rendered[0].Content != "" {
		return rendered[0].Content, nil
	}

	return getDefaultEditorPrompt(), nil
}

// getDefaultEditorPrompt возвращает дефолтный системный промпт редактора.
//
// Используется как fallback когда:
// - Файл editor_system.yaml не существует
// - Файл пустой или некорректный
func getDefaultEditorPrompt() string {
	return `Ты AI-редактор документов. Пользователь видит документ в своём
редакторе, а ты правишь его через инструменты.

## Твои возможности

У тебя есть доступ к инструментам (tools) для работы с документом:
- get_document_content — прочитать документ или его часть
- apply_document_content — заменить документ, диапазон или найденный фрагмент
- find_text — найти точные позиции фрагмента

## Правила работы

1. Перед правкой прочитай документ — не правь вслепую
2. Для точечных правок используй target='search' с точной цитатой из документа
3. Если поиск ничего не нашёл — вызови find_text и повтори с target='range'
4. Не переписывай весь документ ради маленькой правки
5. Markdown в content сохраняет разметку; обычный текст сохраняет
   форматирование заменяемого фрагмента
6. Если инструмент вернул ошибку — сообщи о ней пользователю
7. Если задача неоднозначна — задай уточняющий вопрос

## Примеры

Запрос: "исправь опечатку в слове 'документ'"
Действие: apply_document_content с target='search', search='докуммент', content='документ'

Запрос: "сократи введение"
Действие:
  1. get_document_content → найти границы введения
  2. apply_document_content с target='range' и новым текстом
  3. Кратко описать что изменилось
`
}
