// Tool: find_text
//   - Ищет литеральные вхождения текста в документе
//   - Пробует лестницу кандидатов (диалекты переводов строк, разметка)
//   - Возвращает смещения в рунах для последующего target='range'
//   - Rule 1: Raw In, String Out
package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/redactor-ai/pkg/patch"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// FindTextTool ищет текст в документе.
type FindTextTool struct {
	engine *patch.Engine
}

// NewFindTextTool создаёт tool поиска текста.
func NewFindTextTool(e *patch.Engine) *FindTextTool {
	return &FindTextTool{engine: e}
}

// Definition возвращает описание tool для LLM (Rule 1).
func (t *FindTextTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "find_text",
		Description: "Ищет точные вхождения текста в документе и возвращает их " +
			"позиции {start, end, text} в символах. Позиции можно передать в " +
			"apply_document_content с target='range'.",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]interface{}{
				"search": map[string]interface{}{
					"type":        "string",
					"description": "Искомый текст.",
				},
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "Искать начиная с этого смещения. По умолчанию 0.",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Максимум вхождений в ответе. 0 — без ограничения.",
				},
				"case_sensitive": map[string]interface{}{
					"type":        "boolean",
					"description": "Учитывать регистр. По умолчанию false.",
				},
			},
			"required": []interface{}{"search"},
		},
		DocTypes: []string{"text"},
		Tier:     tools.TierCore,
		Intent:   "find text in document",
	}
}

// findResult — результат поиска.
type findResult struct {
	Status string        `json:"status"`
	Count  int           `json:"count"`
	Ranges []patch.Range `json:"ranges"`
	Hint   string        `json:"hint,omitempty"`
}

// Execute ищет вхождения (Rule 1: Raw In, String Out).
func (t *FindTextTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Search        string `json:"search"`
		Start         int    `json:"start"`
		Limit         int    `json:"limit"`
		CaseSensitive bool   `json:"case_sensitive"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if args.Search == "" {
		return "", fmt.Errorf("search is required")
	}

	ranges := t.engine.Resolver().Find(args.Search, args.Start, args.Limit, args.CaseSensitive)

	result := findResult{
		Status: patch.StatusSuccess,
		Count:  len(ranges),
		Ranges: ranges,
	}
	if result.Ranges == nil {
		result.Ranges = []patch.Range{}
	}
	if len(ranges) == 0 {
		result.Hint = "No occurrences found. Try a shorter fragment or check the exact wording with get_document_content."
	}

	jsonResult, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(jsonResult), nil
}
