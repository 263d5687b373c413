// Интерфейс Tool и структуры определений.

package tools

import "context"

// JSONSchema представляет JSON Schema для параметров инструмента.
//
// Используется вместо interface{} для типобезопасности.
// Формат соответствует JSON Schema specification для Function Calling API.
type JSONSchema map[string]any

// Tier — уровень экспозиции инструмента для LLM.
//
// Core инструменты отправляются в каждый запрос. Extended подключаются
// по intent-совпадению с запросом пользователя. Agent инструменты
// доступны только агентским сценариям, не обычному чату.
type Tier string

const (
	TierCore     Tier = "core"
	TierExtended Tier = "extended"
	TierAgent    Tier = "agent"
)

// ToolDefinition описывает инструмент для LLM (Function Calling API format).
type ToolDefinition struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  JSONSchema `json:"parameters"` // JSON Schema объекта аргументов

	// DocTypes — типы документов, с которыми совместим инструмент
	// ("text", "spreadsheet", ...). nil означает совместим со всеми.
	DocTypes []string `json:"-"`

	// Tier — уровень экспозиции (core по умолчанию).
	Tier Tier `json:"-"`

	// Intent — ключевая фраза назначения для подбора extended инструментов.
	Intent string `json:"-"`

	// Mutating — инструмент изменяет документ.
	// Перед выполнением реестр инвалидирует кеш документа.
	Mutating bool `json:"-"`
}

// Tool — контракт, который должен реализовать любой инструмент.
//
// Контракт "Raw In, String Out": инструмент сам парсит сырой JSON
// аргументов и сам сериализует результат в JSON строку.
type Tool interface {
	// Definition возвращает описание инструмента для LLM.
	Definition() ToolDefinition

	// Execute выполняет логику инструмента.
	// argsJSON — это сырой JSON с аргументами, который прислала LLM.
	// Возвращает результат (обычно JSON) или ошибку.
	Execute(ctx context.Context, argsJSON string) (string, error)
}

// Summary — облегчённая карточка инструмента для каталога.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tier        Tier   `json:"tier"`
	Intent      string `json:"intent,omitempty"`
}

// CacheInvalidator вызывается реестром перед выполнением mutating
// инструмента (кешированное представление документа устаревает).
type CacheInvalidator func()
