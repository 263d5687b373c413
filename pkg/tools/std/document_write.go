// Tool: apply_document_content
//   - Применяет правку к документу с сохранением форматирования
//   - Поддерживает цели: full, range, search, beginning, end, selection
//   - Ноль совпадений поиска — успех с корректирующей подсказкой,
//     а не ошибка: LLM получает шанс скорректировать вызов
//   - Rule 1: Raw In, String Out
//   - Rule 11: context.Context propagation (длинные правки отменяемы)
package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/redactor-ai/pkg/patch"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// ApplyDocumentTool применяет правки к документу.
type ApplyDocumentTool struct {
	engine *patch.Engine
}

// NewApplyDocumentTool создаёт tool правки документа.
func NewApplyDocumentTool(e *patch.Engine) *ApplyDocumentTool {
	return &ApplyDocumentTool{engine: e}
}

// Definition возвращает описание tool для LLM (Rule 1).
func (t *ApplyDocumentTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "apply_document_content",
		Description: "Применяет правку к документу с сохранением форматирования. " +
			"target='full' заменяет весь документ, 'range' — диапазон [start, end), " +
			"'search' — найденный фрагмент (occurrence='first' или 'all'), " +
			"'beginning'/'end' — вставка в начало/конец, 'selection' — текущее выделение. " +
			"Контент может содержать markdown разметку.",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Новый контент (plain текст или markdown).",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"full", "range", "search", "beginning", "end", "selection"},
					"description": "Цель правки. По умолчанию 'full'.",
				},
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "Начало диапазона (для target='range').",
				},
				"end": map[string]interface{}{
					"type":        "integer",
					"description": "Конец диапазона, не включая (для target='range').",
				},
				"search": map[string]interface{}{
					"type":        "string",
					"description": "Искомый фрагмент (для target='search').",
				},
				"occurrence": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"first", "all"},
					"description": "Какие вхождения заменять. По умолчанию 'first'.",
				},
				"case_sensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "Учитывать регистр при поиске. По умолчанию false.",
				},
			},
			"required": []interface{}{"content"},
		},
		DocTypes: []string{"text"},
		Tier:     tools.TierCore,
		Intent:   "edit document content",
		Mutating: true,
	}
}

// Execute применяет правку (Rule 1: Raw In, String Out).
//
// Rule 11: длинные правки уважают отмену контекста.
func (t *ApplyDocumentTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Content       string `json:"content"`
		Target        string `json:"target"`
		Start         int    `json:"start"`
		End           int    `json:"end"`
		Search        string `json:"search"`
		Occurrence    string `json:"occurrence"`
		CaseSensitive bool   `json:"case_sensitive"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	res := t.engine.Apply(ctx, patch.ApplyRequest{
		Content:       args.Content,
		Target:        args.Target,
		Start:         args.Start,
		End:           args.End,
		Search:        args.Search,
		Occurrence:    args.Occurrence,
		CaseSensitive: args.CaseSensitive,
	})
	if res.Status == patch.StatusError {
		return "", fmt.Errorf("apply failed: %s", res.Error)
	}

	jsonResult, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(jsonResult), nil
}
