// Package agent реализует цикл диалога редактора с инструментами.
//
// Orchestrator выполняет раунды:
//  1. Модель получает контекст и схемы инструментов (Streaming)
//  2. Если ответ содержит tool calls — выполняет их по одному в порядке
//     поступления (ToolDispatch -> ToolExecuting)
//  3. Повторяет, пока модель не ответит без инструментов или не
//     исчерпан лимит раундов — тогда финальный запрос уходит БЕЗ схем,
//     и модель обязана ответить текстом
//
// Соблюдение правил dev_manifest.md:
//   - Работает только через llm.Provider (Правило 4)
//   - Инструменты вызываются через tools.Registry (Правило 3)
//   - Thread-safe: Stop() можно дёргать из UI потока (Правило 5)
//   - Никаких panic — все ошибки возвращаются (Правило 7)
//   - context.Context пробрасывается во все блокирующие вызовы (Правило 11)
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/events"
	"github.com/ilkoid/redactor-ai/pkg/history"
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/state"
	"github.com/ilkoid/redactor-ai/pkg/tools"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

// Проверка что Orchestrator реализует интерфейс Agent
var _ Agent = (*Orchestrator)(nil)

// Статусные строки для UI.
const (
	StatusReady   = "Ready"
	StatusStopped = "Stopped"
	StatusError   = "Error"
)

// Orchestrator — координатор цикла диалога.
//
// Один Orchestrator обслуживает одну сессию: ProcessMessage
// сериализуется мьютексом, инструменты выполняются по одному
// в порядке поступления от модели.
type Orchestrator struct {
	provider   llm.Provider
	registry   *tools.Registry
	state      *state.CoreState
	transcript *history.Store // может быть nil

	cfg          config.AgentConfig
	systemPrompt string

	// emitterMu защищает emitter для конкурентного доступа
	emitterMu sync.RWMutex
	emitter   events.Emitter

	// mu сериализует ProcessMessage
	mu sync.Mutex

	// stopped — флаг прерывания пользователем
	stopped atomic.Bool

	// cancelMu защищает cancel текущей обработки (для Stop из UI потока)
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// Config — конфигурация для создания Orchestrator.
type Config struct {
	// Provider — провайдер языковой модели (обязательный).
	// Если реализует llm.StreamingProvider и agent.streaming включён,
	// ответы идут потоком.
	Provider llm.Provider

	// Registry — реестр зарегистрированных инструментов (обязательный)
	Registry *tools.Registry

	// State — состояние сессии (обязательный)
	State *state.CoreState

	// Transcript — персистентная стенограмма (опционально)
	Transcript *history.Store

	// Agent — настройки цикла (раунды, таймауты, async инструменты)
	Agent config.AgentConfig

	// SystemPrompt — системный промпт редактора
	SystemPrompt string
}

// New создаёт новый Orchestrator с заданной конфигурацией.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("cfg.Provider is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("cfg.Registry is required")
	}
	if cfg.State == nil {
		return nil, fmt.Errorf("cfg.State is required")
	}

	return &Orchestrator{
		provider:     cfg.Provider,
		registry:     cfg.Registry,
		state:        cfg.State,
		transcript:   cfg.Transcript,
		cfg:          cfg.Agent.GetDefaults(),
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

// SetEmitter устанавливает emitter для отправки событий в UI.
//
// Port & Adapter pattern: Orchestrator зависит от абстракции
// events.Emitter, а не от конкретного UI.
//
// Thread-safe.
func (o *Orchestrator) SetEmitter(emitter events.Emitter) {
	o.emitterMu.Lock()
	defer o.emitterMu.Unlock()
	o.emitter = emitter
}

// Stop прерывает текущую обработку.
//
// Выставляет флаг и отменяет контекст обработки: стрим и инструменты
// завершаются на ближайшем чекпоинте. Частично применённые правки
// документа остаются (пользователь явно прервал операцию).
//
// Thread-safe: вызывается из UI потока.
func (o *Orchestrator) Stop() {
	o.stopped.Store(true)
	o.cancelMu.Lock()
	if o.cancel != nil {
		o.cancel()
	}
	o.cancelMu.Unlock()
}

// GetHistory возвращает копию истории диалога.
//
// Thread-safe.
func (o *Orchestrator) GetHistory() []llm.Message {
	return o.state.GetHistory()
}

// ProcessMessage выполняет полный цикл обработки запроса пользователя.
//
// Гарантии:
//   - максимум MaxToolRounds раундов с инструментами; после исчерпания
//     лимита финальный запрос уходит без схем (модель отвечает текстом)
//   - худший случай: MaxToolRounds+1 запросов к модели
//   - tool calls одного ответа выполняются строго в порядке поступления,
//     один инструмент за раз
//   - Stop() прерывает цикл; частичный ответ уходит событием EventStopped
//
// Rule 7: Все ошибки возвращаются, нет panic.
// Rule 11: принимает context.Context для отмены операции.
func (o *Orchestrator) ProcessMessage(ctx context.Context, userText string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped.Store(false)
	ctx, cancel := context.WithCancel(ctx)
	o.cancelMu.Lock()
	o.cancel = cancel
	o.cancelMu.Unlock()
	defer func() {
		o.cancelMu.Lock()
		o.cancel = nil
		o.cancelMu.Unlock()
		cancel()
	}()

	utils.Info("Processing message", "session", o.state.SessionID(), "length", len(userText))
	o.emit(ctx, events.Event{
		Type:      events.EventThinking,
		Data:      events.ThinkingData{Query: userText},
		Timestamp: time.Now(),
	})

	o.record(ctx, llm.Message{Role: llm.RoleUser, Content: userText})

	docType := o.state.DocType()
	lastContent := ""

	for round := 0; ; round++ {
		// После исчерпания лимита раундов схемы не отправляются:
		// модель обязана ответить текстом
		allowTools := round < o.cfg.MaxToolRounds
		var schemas []llm.ToolSchema
		if allowTools {
			schemas = o.schemasFor(docType, userText)
		}

		reply, err := o.generate(ctx, schemas)
		if err != nil {
			if o.stopped.Load() || errors.Is(err, context.Canceled) {
				return o.finishStopped(ctx, lastContent), nil
			}
			o.setStatus(ctx, StatusError)
			o.emit(ctx, events.Event{
				Type:      events.EventError,
				Data:      events.ErrorData{Err: err},
				Timestamp: time.Now(),
			})
			return "", fmt.Errorf("model request failed (round %d): %w", round, err)
		}

		if !allowTools && len(reply.ToolCalls) > 0 {
			// Финальный раунд шёл без схем, но модель всё равно прислала
			// tool calls. Выполнять их нельзя, а висящие вызовы без
			// RoleTool ответов ломают повторную отправку истории —
			// записываем ответ без них.
			utils.Warn("Model returned tool calls on final round, dropping",
				"count", len(reply.ToolCalls))
			reply.ToolCalls = nil
		}

		o.record(ctx, reply)
		if reply.Content != "" {
			lastContent = reply.Content
		}

		if !allowTools || len(reply.ToolCalls) == 0 {
			o.setStatus(ctx, StatusReady)
			o.emit(ctx, events.Event{
				Type:      events.EventDone,
				Data:      events.MessageData{Content: reply.Content},
				Timestamp: time.Now(),
			})
			utils.Info("Message processed", "rounds", round, "requests", round+1)
			return reply.Content, nil
		}

		o.runToolCalls(ctx, reply.ToolCalls, docType)

		if o.stopped.Load() {
			return o.finishStopped(ctx, lastContent), nil
		}
	}
}

// schemasFor собирает схемы инструментов для запроса: core уровень
// плюс extended и agent инструменты, подобранные по intent запроса.
func (o *Orchestrator) schemasFor(docType, userText string) []llm.ToolSchema {
	schemas := o.registry.SchemasFor(docType, tools.TierCore)
	if matched := o.registry.NamesByIntent(docType, userText); len(matched) > 0 {
		schemas = append(schemas, o.registry.SchemasByNames(matched)...)
	}
	return schemas
}

// generate выполняет один запрос к модели: потоковый если провайдер
// умеет и streaming включён, иначе обычный.
func (o *Orchestrator) generate(ctx context.Context, schemas []llm.ToolSchema) (llm.Message, error) {
	messages := o.state.BuildConversation(o.systemPrompt)

	streamer, ok := o.provider.(llm.StreamingProvider)
	if !ok || !o.cfg.Streaming {
		return o.provider.Generate(ctx, messages, schemas)
	}

	return streamer.GenerateStream(ctx, messages, schemas, func(chunk llm.StreamChunk) {
		switch chunk.Type {
		case llm.ChunkThinking:
			o.emit(ctx, events.Event{
				Type: events.EventThinkingChunk,
				Data: events.ThinkingChunkData{
					Chunk:       chunk.Delta,
					Accumulated: chunk.ReasoningContent,
				},
				Timestamp: time.Now(),
			})
		case llm.ChunkContent:
			o.emit(ctx, events.Event{
				Type: events.EventContentChunk,
				Data: events.ContentChunkData{
					Chunk:       chunk.Delta,
					Accumulated: chunk.Content,
				},
				Timestamp: time.Now(),
			})
		}
	})
}

// toolOutcome — результат выполнения одного инструмента,
// приходит координатору по каналу от воркера.
type toolOutcome struct {
	callID   string
	name     string
	result   string
	duration time.Duration
}

// runToolCalls выполняет tool calls одного ответа модели.
//
// Инварианты:
//   - порядок выполнения строго совпадает с порядком в ответе модели
//   - один инструмент в полёте: следующий не стартует, пока результат
//     предыдущего не записан в историю
//   - async инструменты выполняются на воркер-горутине; координатор
//     ждёт результат по каналу и параллельно наблюдает отмену, что
//     позволяет прервать долгий инструмент немедленно
//   - результаты ошибок приходят структурным JSON от Registry и
//     записываются в историю как обычные tool результаты
func (o *Orchestrator) runToolCalls(ctx context.Context, calls []llm.ToolCall, docType string) {
	outcomes := make(chan toolOutcome, o.cfg.QueueSize)

	for _, call := range calls {
		if o.stopped.Load() || ctx.Err() != nil {
			o.record(ctx, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    `{"status":"error","error":"cancelled by user"}`,
			})
			continue
		}

		o.setStatus(ctx, "Running: "+call.Name)
		o.emit(ctx, events.Event{
			Type:      events.EventToolCall,
			Data:      events.ToolCallData{ToolName: call.Name, Args: call.Args},
			Timestamp: time.Now(),
		})

		toolCtx, cancelTool := context.WithTimeout(ctx, o.cfg.ToolTimeout)
		o.dispatch(toolCtx, call, docType, outcomes)

		var outcome toolOutcome
		select {
		case outcome = <-outcomes:
		case <-ctx.Done():
			// Воркер завершится по toolCtx; результат в историю
			// не попадает, фиксируем отмену
			outcome = toolOutcome{
				callID: call.ID,
				name:   call.Name,
				result: `{"status":"error","error":"cancelled by user"}`,
			}
		}
		cancelTool()

		o.record(ctx, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: outcome.callID,
			Content:    outcome.result,
		})
		o.emit(ctx, events.Event{
			Type: events.EventToolResult,
			Data: events.ToolResultData{
				ToolName: outcome.name,
				Result:   outcome.result,
				Duration: outcome.duration,
			},
			Timestamp: time.Now(),
		})
		utils.Debug("Tool finished", "tool", outcome.name, "duration_ms", outcome.duration.Milliseconds())
	}
}

// dispatch запускает выполнение инструмента: на воркер-горутине для
// async инструментов, синхронно для остальных. Результат в обоих
// случаях уходит в канал координатора.
func (o *Orchestrator) dispatch(ctx context.Context, call llm.ToolCall, docType string, outcomes chan<- toolOutcome) {
	execute := func() {
		start := time.Now()
		result := o.registry.ExecuteCall(ctx, call.Name, call.Args, docType)
		outcomes <- toolOutcome{
			callID:   call.ID,
			name:     call.Name,
			result:   result,
			duration: time.Since(start),
		}
	}

	if o.cfg.IsAsyncTool(call.Name) {
		go execute()
		return
	}
	execute()
}

// finishStopped завершает обработку после Stop(): частичный контент
// уходит событием EventStopped.
func (o *Orchestrator) finishStopped(ctx context.Context, partial string) string {
	// Отменённый контекст не мешает событиям: UI должен узнать об остановке
	o.setStatus(context.WithoutCancel(ctx), StatusStopped)
	o.emit(context.WithoutCancel(ctx), events.Event{
		Type:      events.EventStopped,
		Data:      events.MessageData{Content: partial},
		Timestamp: time.Now(),
	})
	utils.Info("Processing stopped by user", "partial_length", len(partial))
	return partial
}

// record добавляет сообщение в историю сессии и в персистентную
// стенограмму (если настроена).
func (o *Orchestrator) record(ctx context.Context, msg llm.Message) {
	o.state.AppendMessage(msg)

	if o.transcript == nil {
		return
	}
	// Стенограмма пишется и после отмены: прерванный диалог тоже история
	if err := o.transcript.Append(context.WithoutCancel(ctx), o.state.SessionID(), msg); err != nil {
		utils.Warn("Failed to persist transcript message", "error", err)
	}
}

// setStatus отправляет статусную строку в UI.
func (o *Orchestrator) setStatus(ctx context.Context, status string) {
	o.emit(ctx, events.Event{
		Type:      events.EventStatus,
		Data:      events.StatusData{Status: status},
		Timestamp: time.Now(),
	})
}

// emit отправляет событие через emitter если он установлен.
//
// Thread-safe.
func (o *Orchestrator) emit(ctx context.Context, event events.Event) {
	o.emitterMu.RLock()
	defer o.emitterMu.RUnlock()
	if o.emitter == nil {
		return
	}
	o.emitter.Emit(ctx, event)
}
