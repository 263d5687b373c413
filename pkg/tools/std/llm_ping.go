// Package std предоставляет стандартные инструменты AI-редактора.
//
// LLMPingTool — инструмент для проверки доступности LLM провайдера.
package std

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/models"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// LLMPingTool — инструмент для проверки доступности LLM провайдера.
//
// Позволяет проверить, доступен ли провайдер и валиден ли API ключ,
// не дожидаясь падения настоящего запроса посреди правки.
type LLMPingTool struct {
	modelRegistry *models.Registry
	cfg           *config.AppConfig // Для получения default_chat
	description   string
}

// NewLLMPingTool создает инструмент для проверки доступности LLM провайдера.
func NewLLMPingTool(registry *models.Registry, cfg *config.AppConfig, toolCfg config.ToolConfig) *LLMPingTool {
	description := toolCfg.Description
	if description == "" {
		description = "Проверить доступность LLM провайдера и валидность API ключа"
	}

	return &LLMPingTool{
		modelRegistry: registry,
		cfg:           cfg,
		description:   description,
	}
}

// Definition возвращает определение инструмента для function calling.
func (t *LLMPingTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "ping_llm_provider",
		Description: t.description,
		Tier:        tools.TierExtended,
		Intent:      "check llm provider availability diagnostics",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"model": map[string]interface{}{
					"type":        "string",
					"description": "Алиас модели для проверки. Если не указан, используется default_chat модель.",
				},
			},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
func (t *LLMPingTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		// Пустой JSON допустим — модель будет выбрана по умолчанию
		args.Model = ""
	}

	modelAlias := args.Model
	if modelAlias == "" {
		modelAlias = t.cfg.Models.DefaultChat
		if modelAlias == "" {
			return t.marshalErrorResult("default_chat модель не настроена в конфигурации", "CONFIG_ERROR")
		}
	}

	_, modelDef, err := t.modelRegistry.Get(modelAlias)
	if err != nil {
		return t.marshalErrorResult(fmt.Sprintf("модель '%s' не найдена в реестре: %v", modelAlias, err), "MODEL_NOT_FOUND")
	}

	if modelDef.BaseURL == "" {
		return t.marshalErrorResult(fmt.Sprintf("модель '%s' не имеет base_url в конфигурации", modelAlias), "CONFIG_ERROR")
	}

	if modelDef.APIKey == "" {
		return t.marshalErrorResult(
			fmt.Sprintf("API ключ для модели '%s' не настроен", modelAlias),
			"API_KEY_MISSING",
		)
	}

	result := t.pingAPI(ctx, modelAlias, modelDef)
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// pingAPI выполняет тестовый запрос к API провайдера.
//
// Для OpenAI-совместимых API используется /models endpoint.
func (t *LLMPingTool) pingAPI(ctx context.Context, modelAlias string, modelDef config.ModelDef) map[string]interface{} {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	endpoint := modelDef.BaseURL + "/models"

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return t.buildErrorResult(fmt.Sprintf("ошибка создания запроса: %v", err), "REQUEST_ERROR")
	}

	req.Header.Set("Authorization", "Bearer "+modelDef.APIKey)
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(startTime)

	if err != nil {
		return t.buildErrorResult(fmt.Sprintf("ошибка подключения: %v", err), "CONNECTION_ERROR")
	}
	defer resp.Body.Close()

	result := map[string]interface{}{
		"available":   true,
		"provider":    modelDef.Provider,
		"model":       modelDef.ModelName,
		"base_url":    modelDef.BaseURL,
		"status_code": resp.StatusCode,
		"latency_ms":  latency.Milliseconds(),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result["status"] = "OK"
		result["message"] = fmt.Sprintf("%s API доступен. Модель '%s' (%s) работает корректно.", modelDef.Provider, modelAlias, modelDef.ModelName)
	} else if resp.StatusCode == 401 {
		result["available"] = false
		result["error"] = "недействительный API ключ"
		result["error_type"] = "AUTH_ERROR"
		result["message"] = fmt.Sprintf("API ключ для модели '%s' недействителен", modelAlias)
	} else if resp.StatusCode == 429 {
		result["available"] = false
		result["error"] = "превышен лимит запросов"
		result["error_type"] = "RATE_LIMIT_ERROR"
		result["message"] = fmt.Sprintf("Превышен лимит запросов к %s API. Попробуйте позже.", modelDef.Provider)
	} else {
		result["available"] = false
		result["error"] = fmt.Sprintf("HTTP %d", resp.StatusCode)
		result["error_type"] = "HTTP_ERROR"
		result["message"] = fmt.Sprintf("%s API вернул статус %d. Проверьте конфигурацию.", modelDef.Provider, resp.StatusCode)
	}

	return result
}

// buildErrorResult создает результат ошибки в формате map.
func (t *LLMPingTool) buildErrorResult(message, errType string) map[string]interface{} {
	return map[string]interface{}{
		"available":  false,
		"error":      message,
		"error_type": errType,
		"message":    message,
	}
}

// marshalErrorResult создает результат ошибки и маршалит его в JSON строку.
func (t *LLMPingTool) marshalErrorResult(message, errType string) (string, error) {
	result := t.buildErrorResult(message, errType)
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
