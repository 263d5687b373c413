// Package openai реализует адаптер LLM провайдера для OpenAI-совместимых API.
//
// Поддерживает Function Calling (tools) и потоковую передачу ответа
// со сборкой tool call дельт. Соблюдает правило 4 манифеста: приложение
// работает только через интерфейсы llm.Provider / llm.StreamingProvider.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

// Проверки реализации интерфейсов
var (
	_ llm.Provider          = (*Client)(nil)
	_ llm.StreamingProvider = (*Client)(nil)
)

// Client реализует llm.Provider и llm.StreamingProvider для OpenAI-совместимых API.
//
// Поддерживает:
//   - Базовую генерацию текста
//   - Function Calling (tools)
//   - Streaming с reasoning_content и tool call дельтами
type Client struct {
	api     *openai.Client
	model   string
	limiter *rate.Limiter
}

// NewClient создает OpenAI клиент на основе конфигурации модели.
//
// Принимает ModelDef напрямую: реестр моделей создаёт клиент для
// каждого алиаса из конфигурации.
// BaseURL позволяет подключать non-OpenAI провайдеры (Zai, DeepSeek и т.д.).
//
// Правило 2: все настройки из конфигурации, никакого хардкода.
func NewClient(modelDef config.ModelDef) *Client {
	cfg := openai.DefaultConfig(modelDef.APIKey)
	if modelDef.BaseURL != "" {
		cfg.BaseURL = modelDef.BaseURL
	}

	// Rate limiter защищает от превышения квоты провайдера.
	// RPS <= 0 означает без ограничений.
	var limiter *rate.Limiter
	if modelDef.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(modelDef.RPS), 1)
	}

	return &Client{
		api:     openai.NewClientWithConfig(cfg),
		model:   modelDef.ModelName,
		limiter: limiter,
	}
}

// Generate выполняет запрос к API и возвращает ответ модели.
//
// Алгоритм:
//  1. Ждём слот rate limiter (если настроен)
//  2. Конвертируем внутренние сообщения в формат OpenAI SDK
//  3. Если переданы schemas — добавляем tools в запрос (ToolChoice=auto)
//  4. Вызываем API
//  5. Извлекаем ToolCalls если модель решила вызвать функции
//
// Правило 7: все ошибки возвращаются, никаких panic.
func (c *Client) Generate(ctx context.Context, messages []llm.Message, schemas []llm.ToolSchema, opts ...llm.GenerateOption) (llm.Message, error) {
	startTime := time.Now()

	if err := c.wait(ctx); err != nil {
		return llm.Message{}, err
	}

	req, err := c.buildRequest(messages, schemas, opts...)
	if err != nil {
		return llm.Message{}, err
	}

	utils.Debug("LLM request started",
		"model", req.Model,
		"messages_count", len(messages),
		"tools_count", len(schemas))

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		utils.Error("LLM API request failed",
			"error", err,
			"model", req.Model,
			"duration_ms", time.Since(startTime).Milliseconds())
		return llm.Message{}, fmt.Errorf("openai api error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return llm.Message{}, fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0].Message

	result := llm.Message{
		Role:             llm.Role(choice.Role),
		Content:          choice.Content,
		ReasoningContent: choice.ReasoningContent,
	}

	if len(choice.ToolCalls) > 0 {
		result.ToolCalls = make([]llm.ToolCall, len(choice.ToolCalls))
		for i, tc := range choice.ToolCalls {
			result.ToolCalls[i] = llm.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
		}
	}

	utils.Info("LLM response received",
		"model", req.Model,
		"tool_calls_count", len(result.ToolCalls),
		"content_length", len(result.Content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// GenerateStream выполняет потоковый запрос к API.
//
// Алгоритм:
//  1. Открываем стрим
//  2. Для каждой дельты вызываем callback (thinking / content / tool_call)
//  3. Накапливаем контент и собираем tool call дельты по индексу
//  4. По завершении отправляем ChunkDone и возвращаем собранное сообщение
//
// Rule 11: отмена ctx прерывает чтение стрима.
func (c *Client) GenerateStream(ctx context.Context, messages []llm.Message, schemas []llm.ToolSchema, callback func(llm.StreamChunk), opts ...llm.GenerateOption) (llm.Message, error) {
	startTime := time.Now()

	if err := c.wait(ctx); err != nil {
		return llm.Message{}, err
	}

	req, err := c.buildRequest(messages, schemas, opts...)
	if err != nil {
		return llm.Message{}, err
	}
	req.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return llm.Message{}, fmt.Errorf("openai stream error: %w", err)
	}
	defer stream.Close()

	var (
		content   strings.Builder
		reasoning strings.Builder
		acc       toolCallAccumulator
	)

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			// Отмена контекста — не ошибка API, отдаём как есть
			if ctx.Err() != nil {
				return llm.Message{}, ctx.Err()
			}
			callback(llm.StreamChunk{Type: llm.ChunkError, Error: recvErr})
			return llm.Message{}, fmt.Errorf("openai stream recv: %w", recvErr)
		}

		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta

		if delta.ReasoningContent != "" {
			reasoning.WriteString(delta.ReasoningContent)
			callback(llm.StreamChunk{
				Type:             llm.ChunkThinking,
				Delta:            delta.ReasoningContent,
				ReasoningContent: reasoning.String(),
			})
		}

		if delta.Content != "" {
			content.WriteString(delta.Content)
			callback(llm.StreamChunk{
				Type:    llm.ChunkContent,
				Delta:   delta.Content,
				Content: content.String(),
			})
		}

		for _, tc := range delta.ToolCalls {
			name := acc.add(tc)
			callback(llm.StreamChunk{
				Type:         llm.ChunkToolCall,
				ToolCallName: name,
				Delta:        tc.Function.Arguments,
			})
		}
	}

	result := llm.Message{
		Role:             llm.RoleAssistant,
		Content:          content.String(),
		ReasoningContent: reasoning.String(),
		ToolCalls:        acc.calls(),
	}

	callback(llm.StreamChunk{Type: llm.ChunkDone, Content: result.Content, Done: true})

	utils.Info("LLM stream finished",
		"model", req.Model,
		"tool_calls_count", len(result.ToolCalls),
		"content_length", len(result.Content),
		"duration_ms", time.Since(startTime).Milliseconds())

	return result, nil
}

// wait блокируется до свободного слота rate limiter.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// buildRequest собирает ChatCompletionRequest из сообщений, схем и опций.
func (c *Client) buildRequest(messages []llm.Message, schemas []llm.ToolSchema, opts ...llm.GenerateOption) (openai.ChatCompletionRequest, error) {
	genOpts := llm.ApplyOptions(opts...)

	openaiMsgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		openaiMsgs[i] = mapToOpenAI(m)
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: openaiMsgs,
	}
	if genOpts.Model != "" {
		req.Model = genOpts.Model
	}
	if genOpts.Temperature > 0 {
		req.Temperature = float32(genOpts.Temperature)
	}
	if genOpts.MaxTokens > 0 {
		req.MaxTokens = genOpts.MaxTokens
	}
	if genOpts.Format == "json_object" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	if len(schemas) > 0 {
		req.Tools = convertToolSchemas(schemas)
		// Автоматический режим — модель сама решает когда вызывать tools
		req.ToolChoice = "auto"
	}

	return req, nil
}

// mapToOpenAI конвертирует наше внутреннее сообщение в формат SDK.
func mapToOpenAI(m llm.Message) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{
		Role:    string(m.Role),
		Content: m.Content,
	}

	if m.ToolCallID != "" {
		msg.ToolCallID = m.ToolCallID
	}

	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]openai.ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Args,
				},
			}
		}
	}

	return msg
}

// convertToolSchemas конвертирует определения инструментов во внутреннем формате
// в формат OpenAI Function Calling.
//
// Parameters уже является JSON Schema объектом (map[string]interface{}),
// поэтому передаётся в SDK напрямую.
func convertToolSchemas(schemas []llm.ToolSchema) []openai.Tool {
	result := make([]openai.Tool, len(schemas))

	for i, s := range schemas {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		}
	}

	return result
}

// toolCallAccumulator собирает tool call дельты стрима в полные вызовы.
//
// OpenAI-совместимые API присылают ID и имя в первой дельте вызова,
// аргументы — кусками в последующих дельтах с тем же индексом.
type toolCallAccumulator struct {
	order []int
	parts map[int]*partialToolCall
}

type partialToolCall struct {
	id   string
	name string
	args strings.Builder
}

// add учитывает одну дельту и возвращает имя инструмента (для callback).
func (a *toolCallAccumulator) add(tc openai.ToolCall) string {
	if a.parts == nil {
		a.parts = make(map[int]*partialToolCall)
	}

	idx := 0
	if tc.Index != nil {
		idx = *tc.Index
	}

	p, ok := a.parts[idx]
	if !ok {
		p = &partialToolCall{}
		a.parts[idx] = p
		a.order = append(a.order, idx)
	}
	if tc.ID != "" {
		p.id = tc.ID
	}
	if tc.Function.Name != "" {
		p.name = tc.Function.Name
	}
	p.args.WriteString(tc.Function.Arguments)

	return p.name
}

// calls возвращает собранные вызовы в порядке появления в стриме.
func (a *toolCallAccumulator) calls() []llm.ToolCall {
	if len(a.order) == 0 {
		return nil
	}
	result := make([]llm.ToolCall, 0, len(a.order))
	for _, idx := range a.order {
		p := a.parts[idx]
		result = append(result, llm.ToolCall{
			ID:   p.id,
			Name: p.name,
			Args: p.args.String(),
		})
	}
	return result
}
