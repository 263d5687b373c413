// Package llm предоставляет типы и интерфейсы для работы с LLM провайдерами.
//
// Этот файл определяет абстракции для потоковой передачи (streaming) ответов от LLM.
package llm

import "context"

// StreamingProvider — интерфейс для LLM провайдеров с поддержкой стриминга.
//
// Отдельный интерфейс от Provider: провайдеры могут реализовать оба
// или только Provider (тогда вызывающий код делает fallback на Generate).
//
// # Rule 4: LLM Abstraction
//
// Работаем через интерфейс, конкретные реализации скрыты за абстракцией.
//
// # Rule 11: Context Propagation
//
// Все методы уважают context.Context и прерывают операцию при отмене.
type StreamingProvider interface {
	Provider

	// GenerateStream выполняет запрос к API с потоковой передачей ответа.
	//
	// Callback вызывается для каждой порции данных:
	//   - ChunkThinking: reasoning_content из thinking mode
	//   - ChunkContent: обычный контент ответа
	//   - ChunkToolCall: инкремент аргументов вызова инструмента
	//   - ChunkError: ошибка стриминга
	//   - ChunkDone: завершение стриминга
	//
	// Возвращает финальное сообщение с накопленным контентом и
	// полностью собранными ToolCalls после завершения стриминга.
	//
	// # Thread Safety
	//
	// Callback вызывается из goroutine чтения стрима, должен быть thread-safe.
	GenerateStream(
		ctx context.Context,
		messages []Message,
		schemas []ToolSchema,
		callback func(StreamChunk),
		opts ...GenerateOption,
	) (Message, error)
}

// StreamChunk представляет одну порцию данных из потокового ответа.
//
// Содержит как инкрементальные изменения (Delta), так и накопленное
// состояние (Content) — удобно для отправки через events.Event.
type StreamChunk struct {
	// Type определяет тип чанка
	Type ChunkType

	// Content содержит накопленный текстовый контент на данный момент
	Content string

	// ReasoningContent содержит накопленный reasoning_content из thinking mode
	ReasoningContent string

	// Delta — инкрементальные изменения (для UI обновлений в реальном времени)
	Delta string

	// ToolCallName — имя инструмента (только когда Type == ChunkToolCall)
	ToolCallName string

	// Done — флаг завершения стриминга
	Done bool

	// Error — ошибка если произошла (только когда Type == ChunkError)
	Error error
}

// ChunkType определяет тип стримингового чанка.
type ChunkType string

const (
	// ChunkThinking — reasoning_content из thinking mode.
	ChunkThinking ChunkType = "thinking"

	// ChunkContent — обычный контент ответа.
	ChunkContent ChunkType = "content"

	// ChunkToolCall — дельта вызова инструмента.
	// Аргументы накапливаются по мере поступления, финальная сборка
	// происходит внутри провайдера.
	ChunkToolCall ChunkType = "tool_call"

	// ChunkError — ошибка стриминга.
	ChunkError ChunkType = "error"

	// ChunkDone — завершение стриминга.
	ChunkDone ChunkType = "done"
)
