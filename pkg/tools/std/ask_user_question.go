// Package std предоставляет стандартные инструменты AI-редактора.
//
// AskUserQuestionTool — инструмент для задавания вопросов пользователю
// с вариантами ответов (1-5).
//
// АРХИТЕКТУРА (Polling Pattern):
// Tool не отправляет события! UI опрашивает QuestionManager.HasPendingQuestions()
// после каждого события.
package std

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/questions"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// AskUserQuestionTool — инструмент для задавания вопросов пользователю.
//
// Позволяет модели уточнить неоднозначную правку (какой из вариантов
// формулировки оставить, какой фрагмент имелся в виду) вместо правки вслепую.
//
// Архитектура (Rule 6 compliant):
// 1. LLM вызывает tool с вопросом и вариантами
// 2. Tool создает вопрос в QuestionManager (shared state)
// 3. Tool блокируется на WaitForAnswer()
// 4. UI опрашивает QuestionManager.HasPendingQuestions() после каждого события
// 5. Пользователь выбирает вариант (нажимает 1-5)
// 6. Tool возвращает выбранный вариант модели
type AskUserQuestionTool struct {
	questionManager *questions.QuestionManager
	maxOptions      int
	timeout         time.Duration
	description     string
}

// NewAskUserQuestionTool создает инструмент для задавания вопросов.
//
// Примечание: Tool НЕ требует emitter! UI опрашивает QuestionManager напрямую.
func NewAskUserQuestionTool(
	questionManager *questions.QuestionManager,
	cfg config.ToolConfig,
) *AskUserQuestionTool {
	description := cfg.Description
	if description == "" {
		description = "Задать пользователю уточняющий вопрос с вариантами ответов. " +
			"Используй когда правка неоднозначна и нужен выбор пользователя."
	}

	return &AskUserQuestionTool{
		questionManager: questionManager,
		maxOptions:      5, // Варианты выбираются цифрами 1-5
		timeout:         5 * time.Minute,
		description:     description,
	}
}

// GetQuestionManager возвращает QuestionManager для использования в UI.
//
// UI использует HasPendingQuestions(), GetQuestion(), SubmitAnswer().
func (t *AskUserQuestionTool) GetQuestionManager() *questions.QuestionManager {
	return t.questionManager
}

// Definition возвращает определение инструмента для function calling.
func (t *AskUserQuestionTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "ask_user_question",
		Description: t.description,
		Tier:        tools.TierCore,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Текст вопроса пользователю",
				},
				"options": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"label": map[string]interface{}{
								"type":        "string",
								"description": "Короткий текст варианта (например 'сократить введение')",
							},
							"description": map[string]interface{}{
								"type":        "string",
								"description": "Пояснение варианта (опционально)",
							},
						},
						"required": []interface{}{"label"},
					},
					"minItems": 1,
					"maxItems": t.maxOptions,
				},
			},
			"required": []interface{}{"question", "options"},
		},
	}
}

// Execute выполняет инструмент согласно контракту "Raw In, String Out".
//
// Блокируется до ответа пользователя или отмены контекста.
func (t *AskUserQuestionTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	var args struct {
		Question string                     `json:"question"`
		Options  []questions.QuestionOption `json:"options"`
	}

	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return "", fmt.Errorf("ошибка парсинга аргументов: %w", err)
	}

	// Валидация
	if args.Question == "" {
		return "", fmt.Errorf("question не может быть пустым")
	}
	if len(args.Options) == 0 {
		return "", fmt.Errorf("нужен хотя бы один вариант")
	}
	if len(args.Options) > t.maxOptions {
		return "", fmt.Errorf("слишком много вариантов: %d (максимум %d)", len(args.Options), t.maxOptions)
	}
	for i, opt := range args.Options {
		if opt.Label == "" {
			return "", fmt.Errorf("вариант %d: label не может быть пустым", i)
		}
	}

	if t.questionManager == nil {
		return "", fmt.Errorf("questionManager не установлен")
	}

	// Создаем вопрос в QuestionManager (shared state).
	// UI опросит HasPendingQuestions() и получит этот вопрос
	questionID, err := t.questionManager.CreateQuestion(args.Question, args.Options)
	if err != nil {
		return "", fmt.Errorf("ошибка создания вопроса: %w", err)
	}

	// Ждем ответа (блокировка до SubmitAnswer() или timeout)
	result, err := t.questionManager.WaitForAnswer(ctx, questionID)
	if err != nil {
		return "", fmt.Errorf("ошибка ожидания ответа: %w", err)
	}

	return result.ToJSONString(), nil
}

// QuestionAnswer — вспомогательная структура для отправки ответа из UI.
type QuestionAnswer = questions.QuestionAnswer

// QuestionOption — вспомогательная структура для варианта ответа.
type QuestionOption = questions.QuestionOption
