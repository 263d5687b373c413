// Tool: get_document_content
//   - Возвращает разметку документа (весь, выделение или диапазон)
//   - Длинный вывод усекается с маркером, чтобы не раздувать контекст LLM
//   - Rule 1: Raw In, String Out
package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/redactor-ai/pkg/patch"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// ReadDocumentTool читает содержимое документа для LLM.
type ReadDocumentTool struct {
	engine *patch.Engine
}

// NewReadDocumentTool создаёт tool чтения документа.
func NewReadDocumentTool(e *patch.Engine) *ReadDocumentTool {
	return &ReadDocumentTool{engine: e}
}

// Definition возвращает описание tool для LLM (Rule 1).
func (t *ReadDocumentTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "get_document_content",
		Description: "Возвращает содержимое документа в markdown разметке. " +
			"scope='full' — весь документ, 'selection' — текущее выделение, " +
			"'range' — диапазон [start, end) в символах. " +
			"Длинный вывод усекается маркером [... truncated ...].",
		Parameters: tools.JSONSchema{
			"type": "object",
			"properties": map[string]interface{}{
				"scope": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"full", "selection", "range"},
					"description": "Область чтения. По умолчанию 'full'.",
				},
				"start": map[string]interface{}{
					"type":        "integer",
					"description": "Начало диапазона в символах (для scope='range').",
				},
				"end": map[string]interface{}{
					"type":        "integer",
					"description": "Конец диапазона в символах, не включая (для scope='range').",
				},
				"max_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Лимит символов в ответе. 0 — лимит по умолчанию.",
				},
			},
		},
		DocTypes: []string{"text"},
		Tier:     tools.TierCore,
		Intent:   "read document content",
	}
}

// Execute читает документ (Rule 1: Raw In, String Out).
func (t *ReadDocumentTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Scope    string `json:"scope"`
		Start    int    `json:"start"`
		End      int    `json:"end"`
		MaxChars int    `json:"max_chars"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	res := t.engine.Read(patch.ReadRequest{
		Scope:    args.Scope,
		Start:    args.Start,
		End:      args.End,
		MaxChars: args.MaxChars,
	})
	if res.Status == patch.StatusError {
		return "", fmt.Errorf("read failed: %s", res.Error)
	}

	jsonResult, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(jsonResult), nil
}
