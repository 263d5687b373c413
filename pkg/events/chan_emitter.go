package events

import (
	"context"
	"sync"
)

var _ Emitter = (*ChanEmitter)(nil)
var _ Subscriber = (*chanSubscriber)(nil)

// ChanEmitter — шина событий редактора на одном буферизованном канале.
//
// Оркестратор пишет события диалога, подписчики (TUI, прогресс batch
// режима) читают их из общего канала. Порядок событий совпадает
// с порядком Emit.
//
// Rule 5: thread-safe.
type ChanEmitter struct {
	// mu держится на чтение всю отправку: Close не закроет канал
	// под незавершённым Emit
	mu     sync.RWMutex
	events chan Event
	closed bool
}

// NewChanEmitter создаёт шину с буфером на buffer событий.
// Буфер меньше 1 поднимается до 1, чтобы Emit без читателя
// не блокировал оркестратор на первом же событии.
func NewChanEmitter(buffer int) *ChanEmitter {
	if buffer < 1 {
		buffer = 1
	}
	return &ChanEmitter{events: make(chan Event, buffer)}
}

// Emit отправляет событие подписчикам.
//
// После Close события молча отбрасываются. При заполненном буфере
// блокируется до читателя или отмены ctx (Rule 11).
func (e *ChanEmitter) Emit(ctx context.Context, event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}

	select {
	case e.events <- event:
	case <-ctx.Done():
	}
}

// Subscribe возвращает подписчика на общий канал событий.
//
// Несколько подписчиков делят один канал: каждое событие получает
// ровно один из них.
func (e *ChanEmitter) Subscribe() Subscriber {
	return &chanSubscriber{events: e.events}
}

// Close закрывает шину. Канал подписчиков закрывается, их циклы
// чтения завершаются. Повторный вызов безопасен.
func (e *ChanEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.events)
}

// chanSubscriber читает события из общего канала шины.
type chanSubscriber struct {
	events <-chan Event
}

func (s *chanSubscriber) Events() <-chan Event { return s.events }

// Close — no-op: общий канал закрывает только ChanEmitter.Close.
func (s *chanSubscriber) Close() {}
