package openai

import (
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/llm"
)

func intPtr(v int) *int { return &v }

// TestNewClient тестирует создание клиента.
func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		modelDef config.ModelDef
	}{
		{
			name: "minimal config",
			modelDef: config.ModelDef{
				APIKey:    "test-key",
				ModelName: "gpt-4o-mini",
			},
		},
		{
			name: "with custom base url",
			modelDef: config.ModelDef{
				APIKey:    "test-key",
				ModelName: "glm-4.6",
				BaseURL:   "https://api.z.ai/v4",
			},
		},
		{
			name: "with rate limit",
			modelDef: config.ModelDef{
				APIKey:    "test-key",
				ModelName: "gpt-4o-mini",
				RPS:       2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.modelDef)
			if client == nil {
				t.Fatal("expected non-nil client")
			}
			if tt.modelDef.RPS > 0 && client.limiter == nil {
				t.Error("expected rate limiter to be configured")
			}
			if tt.modelDef.RPS == 0 && client.limiter != nil {
				t.Error("expected no rate limiter for RPS=0")
			}
		})
	}
}

// TestToolCallAccumulator проверяет сборку tool call дельт стрима
// в полные вызовы с сохранением порядка появления.
func TestToolCallAccumulator(t *testing.T) {
	var acc toolCallAccumulator

	// Первый вызов: id+имя приходят первой дельтой, аргументы двумя кусками
	acc.add(openai.ToolCall{Index: intPtr(0), ID: "call_1", Function: openai.FunctionCall{Name: "edit_selection"}})
	acc.add(openai.ToolCall{Index: intPtr(0), Function: openai.FunctionCall{Arguments: `{"content":`}})
	acc.add(openai.ToolCall{Index: intPtr(0), Function: openai.FunctionCall{Arguments: `"hello"}`}})

	// Второй вызов приходит вперемешку
	acc.add(openai.ToolCall{Index: intPtr(1), ID: "call_2", Function: openai.FunctionCall{Name: "find_text", Arguments: `{}`}})

	calls := acc.calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].ID != "call_1" || calls[0].Name != "edit_selection" {
		t.Errorf("unexpected first call: %+v", calls[0])
	}
	if calls[0].Args != `{"content":"hello"}` {
		t.Errorf("arguments not assembled: %q", calls[0].Args)
	}
	if calls[1].ID != "call_2" || calls[1].Name != "find_text" {
		t.Errorf("unexpected second call: %+v", calls[1])
	}
}

func TestToolCallAccumulatorEmpty(t *testing.T) {
	var acc toolCallAccumulator
	if calls := acc.calls(); calls != nil {
		t.Errorf("expected nil for empty accumulator, got %v", calls)
	}
}

func TestConvertToolSchemas(t *testing.T) {
	schemas := []llm.ToolSchema{
		{
			Name:        "get_document_text",
			Description: "Read document content",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}

	result := convertToolSchemas(schemas)
	if len(result) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result))
	}
	if result[0].Type != openai.ToolTypeFunction {
		t.Errorf("expected function type, got %s", result[0].Type)
	}
	if result[0].Function.Name != "get_document_text" {
		t.Errorf("unexpected name: %s", result[0].Function.Name)
	}
}

// TestMapToOpenAI проверяет маппинг role-specific полей.
func TestMapToOpenAI(t *testing.T) {
	// Сообщение-результат инструмента несёт ToolCallID
	toolMsg := mapToOpenAI(llm.Message{
		Role:       llm.RoleTool,
		Content:    `{"status":"success"}`,
		ToolCallID: "call_7",
	})
	if toolMsg.ToolCallID != "call_7" {
		t.Errorf("tool call id lost: %q", toolMsg.ToolCallID)
	}

	// Сообщение ассистента возвращает свои tool calls обратно в API
	asstMsg := mapToOpenAI(llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_7", Name: "find_text", Args: `{"search":"x"}`},
		},
	})
	if len(asstMsg.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(asstMsg.ToolCalls))
	}
	if asstMsg.ToolCalls[0].Function.Name != "find_text" {
		t.Errorf("unexpected tool call name: %s", asstMsg.ToolCalls[0].Function.Name)
	}
}
