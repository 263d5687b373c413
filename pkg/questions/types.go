// Типы интерактивных вопросов редактора.
//
// Когда правка неоднозначна, модель через ask_user_question предлагает
// варианты; пользователь выбирает один цифрой в TUI, и выбор уходит
// модели структурным JSON результатом.
package questions

import (
	"encoding/json"
	"fmt"
	"time"
)

// Статусы результата вопроса.
const (
	StatusAnswered  = "answered"
	StatusCancelled = "cancelled"
	StatusTimeout   = "timeout"
)

// QuestionOption — один вариант ответа.
type QuestionOption struct {
	Label       string `json:"label"`       // Короткий текст варианта ("сократить введение")
	Description string `json:"description"` // Пояснение, опционально
}

// QuestionAnswer — выбор пользователя.
type QuestionAnswer struct {
	Index       int       // Индекс выбранного варианта (0-based)
	Label       string    // Label выбранного варианта
	Description string    // Description выбранного варианта
	Timestamp   time.Time // Время ответа
}

// PendingQuestion — вопрос, ожидающий ответа пользователя.
type PendingQuestion struct {
	ID        string
	Question  string
	Options   []QuestionOption
	CreatedAt time.Time
}

// validate проверяет вопрос перед регистрацией.
func (pq *PendingQuestion) validate(maxOptions int) error {
	if pq.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if len(pq.Options) == 0 {
		return fmt.Errorf("at least one option required")
	}
	if len(pq.Options) > maxOptions {
		return fmt.Errorf("too many options: %d (max %d)", len(pq.Options), maxOptions)
	}
	for i, opt := range pq.Options {
		if opt.Label == "" {
			return fmt.Errorf("option %d: label cannot be empty", i)
		}
	}
	return nil
}

// IsValidIndex проверяет что индекс попадает в варианты вопроса.
func (pq *PendingQuestion) IsValidIndex(index int) bool {
	return index >= 0 && index < len(pq.Options)
}

// GetOption возвращает вариант по индексу.
func (pq *PendingQuestion) GetOption(index int) (QuestionOption, bool) {
	if !pq.IsValidIndex(index) {
		return QuestionOption{}, false
	}
	return pq.Options[index], true
}

// QuestionResult — итог вопроса: выбор пользователя или причина,
// по которой ответа не будет.
type QuestionResult struct {
	Status      string // answered | cancelled | timeout
	Index       int    // Для StatusAnswered
	Label       string
	Description string
	Error       string // Для StatusCancelled и StatusTimeout
	Timestamp   time.Time
}

func answeredResult(answer QuestionAnswer) QuestionResult {
	return QuestionResult{
		Status:      StatusAnswered,
		Index:       answer.Index,
		Label:       answer.Label,
		Description: answer.Description,
		Timestamp:   answer.Timestamp,
	}
}

func cancelledResult(reason string) QuestionResult {
	return QuestionResult{Status: StatusCancelled, Error: reason, Timestamp: time.Now()}
}

func timeoutResult(timeout time.Duration) QuestionResult {
	return QuestionResult{
		Status:    StatusTimeout,
		Error:     fmt.Sprintf("no answer after %s", timeout),
		Timestamp: time.Now(),
	}
}

// ToJSONString сериализует результат для возврата модели.
//
// Кавычки и спецсимволы в label экранируются честным json.Marshal,
// а не форматной строкой.
func (qr QuestionResult) ToJSONString() string {
	var payload any
	if qr.Status == StatusAnswered {
		desc := qr.Description
		if desc == "" {
			desc = qr.Label
		}
		payload = struct {
			Status      string `json:"status"`
			Index       int    `json:"selected_index"`
			Label       string `json:"selected_label"`
			Description string `json:"selected_description"`
		}{qr.Status, qr.Index, qr.Label, desc}
	} else {
		payload = struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}{qr.Status, qr.Error}
	}

	out, err := json.Marshal(payload)
	if err != nil {
		return `{"status":"error","error":"failed to serialize question result"}`
	}
	return string(out)
}
