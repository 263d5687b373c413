// Package agent реализует цикл диалога редактора с инструментами.
package agent

import (
	"context"

	"github.com/ilkoid/redactor-ai/pkg/llm"
)

// Agent — контракт цикла диалога для UI и batch сценариев.
type Agent interface {
	// ProcessMessage выполняет полный цикл обработки запроса пользователя
	// и возвращает финальный ответ модели.
	ProcessMessage(ctx context.Context, userText string) (string, error)

	// Stop прерывает текущую обработку. Безопасно вызывать из другой
	// горутины (UI поток).
	Stop()

	// GetHistory возвращает копию истории диалога.
	GetHistory() []llm.Message
}

// Phase — фаза цикла диалога (для статусной строки и отладки).
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStreaming Phase = "streaming"
	PhaseTool      Phase = "tool"
	PhaseDone      Phase = "done"
	PhaseStopped   Phase = "stopped"
	PhaseError     Phase = "error"
)
