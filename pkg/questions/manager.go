package questions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// entry — зарегистрированный вопрос вместе с каналом результата.
type entry struct {
	question *PendingQuestion
	reply    chan QuestionResult
}

// QuestionManager — координатор между инструментом и TUI.
//
// Поток данных:
//  1. Инструмент регистрирует вопрос через CreateQuestion
//  2. Инструмент блокируется на WaitForAnswer
//  3. TUI опрашивает HasPendingQuestions, забирает вопрос через
//     GetFirstPendingID + GetQuestion и рендерит варианты
//  4. SubmitAnswer или Cancel будят инструмент результатом
//
// Rule 5: потокобезопасен, инструмент и TUI живут в разных горутинах.
type QuestionManager struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // порядок регистрации для GetFirstPendingID

	maxOptions int
	timeout    time.Duration
}

// NewQuestionManager создаёт менеджер вопросов.
func NewQuestionManager(maxOptions int, timeout time.Duration) *QuestionManager {
	return &QuestionManager{
		entries:    make(map[string]*entry),
		maxOptions: maxOptions,
		timeout:    timeout,
	}
}

// CreateQuestion регистрирует вопрос и возвращает его ID.
//
// Ошибка если вопрос пустой, вариантов нет или больше maxOptions,
// либо у варианта пустой label.
func (qm *QuestionManager) CreateQuestion(question string, options []QuestionOption) (string, error) {
	pq := &PendingQuestion{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   options,
		CreatedAt: time.Now(),
	}
	if err := pq.validate(qm.maxOptions); err != nil {
		return "", fmt.Errorf("invalid question: %w", err)
	}

	qm.mu.Lock()
	defer qm.mu.Unlock()
	qm.entries[pq.ID] = &entry{question: pq, reply: make(chan QuestionResult, 1)}
	qm.order = append(qm.order, pq.ID)
	return pq.ID, nil
}

// WaitForAnswer блокируется до ответа пользователя, таймаута
// менеджера или отмены контекста.
//
// Вопрос снимается с ожидания во всех трёх исходах.
// Rule 11: ctx прерывает ожидание (Stop агента, завершение процесса).
func (qm *QuestionManager) WaitForAnswer(ctx context.Context, questionID string) (QuestionResult, error) {
	qm.mu.RLock()
	e, ok := qm.entries[questionID]
	qm.mu.RUnlock()
	if !ok {
		return QuestionResult{}, fmt.Errorf("question not found: %s", questionID)
	}

	timer := time.NewTimer(qm.timeout)
	defer timer.Stop()

	select {
	case result := <-e.reply:
		qm.remove(questionID)
		return result, nil

	case <-timer.C:
		qm.remove(questionID)
		return timeoutResult(qm.timeout), nil

	case <-ctx.Done():
		qm.remove(questionID)
		return cancelledResult("context_cancelled"), ctx.Err()
	}
}

// GetQuestion возвращает ожидающий вопрос по ID.
func (qm *QuestionManager) GetQuestion(id string) (*PendingQuestion, bool) {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	e, ok := qm.entries[id]
	if !ok {
		return nil, false
	}
	return e.question, true
}

// SubmitAnswer доставляет выбор пользователя ожидающему инструменту.
func (qm *QuestionManager) SubmitAnswer(questionID string, answer QuestionAnswer) error {
	qm.mu.RLock()
	e, ok := qm.entries[questionID]
	qm.mu.RUnlock()
	if !ok {
		return fmt.Errorf("question not found: %s", questionID)
	}

	if !e.question.IsValidIndex(answer.Index) {
		return fmt.Errorf("invalid index: %d (valid: 0-%d)", answer.Index, len(e.question.Options)-1)
	}

	// Буфер канала 1: повторный ответ на тот же вопрос игнорируется
	select {
	case e.reply <- answeredResult(answer):
		return nil
	default:
		return fmt.Errorf("question %s already answered", questionID)
	}
}

// Cancel снимает вопрос без ответа (Esc, Ctrl+C).
func (qm *QuestionManager) Cancel(questionID string, reason string) {
	qm.mu.RLock()
	e, ok := qm.entries[questionID]
	qm.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case e.reply <- cancelledResult(reason):
	default:
	}
}

// HasPendingQuestions сообщает есть ли ожидающие вопросы.
func (qm *QuestionManager) HasPendingQuestions() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return len(qm.entries) > 0
}

// GetFirstPendingID возвращает ID самого раннего ожидающего вопроса
// или пустую строку. Порядок детерминирован порядком регистрации.
func (qm *QuestionManager) GetFirstPendingID() string {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	if len(qm.order) == 0 {
		return ""
	}
	return qm.order[0]
}

// remove снимает вопрос с ожидания.
func (qm *QuestionManager) remove(id string) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	delete(qm.entries, id)
	for i, queued := range qm.order {
		if queued == id {
			qm.order = append(qm.order[:i], qm.order[i+1:]...)
			break
		}
	}
}
