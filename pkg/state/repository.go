// Интерфейсы репозиториев состояния.
//
// Интерфейсы следуют паттерну Repository с единым базовым CRUD (UnifiedStore)
// и domain-specific расширениями.
//
// Thread-safety: все реализации должны гарантировать thread-safe доступ.
//
// Rule 7: Все ошибки возвращаются, никаких panic.
package state

import (
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/s3storage"
)

// UnifiedStore — базовый интерфейс для всех репозиториев.
//
// Предоставляет унифицированный CRUD API для произвольных значений
// приложения. Зарезервированные ключи защищены от записи.
type UnifiedStore interface {
	// Get возвращает значение по ключу: (value, true) если существует.
	Get(key string) (any, bool)

	// Set сохраняет значение по ключу.
	// Для зарезервированного ключа возвращает ErrKeyReserved.
	Set(key string, value any) error

	// Update атомарно обновляет значение по ключу.
	// fn получает текущее значение (nil если ключа нет) и возвращает
	// новое; nil от fn удаляет ключ.
	Update(key string, fn func(any) any) error

	// Delete удаляет значение по ключу.
	// Для несуществующего ключа возвращает ErrKeyNotFound.
	Delete(key string) error

	// Exists проверяет существование ключа.
	Exists(key string) bool

	// List возвращает все ключи. Порядок не гарантирован.
	List() []string
}

// MessageRepository — репозиторий истории диалога (User <-> Agent).
type MessageRepository interface {
	UnifiedStore

	// AppendMessage добавляет сообщение в историю.
	AppendMessage(msg llm.Message)

	// GetHistory возвращает копию всей истории диалога.
	GetHistory() []llm.Message

	// ClearHistory очищает историю диалога.
	ClearHistory()
}

// SessionRepository — репозиторий сессии редактора.
type SessionRepository interface {
	UnifiedStore

	// SessionID возвращает идентификатор текущей сессии.
	SessionID() string

	// ResetSession начинает новую сессию и возвращает её ID.
	ResetSession() string

	// DocType возвращает тип открытого документа.
	DocType() string

	// SetDocType устанавливает тип открытого документа.
	SetDocType(docType string)
}

// StorageRepository — репозиторий архива снапшотов.
//
// Опциональная зависимость: приложения без S3 возвращают nil.
type StorageRepository interface {
	UnifiedStore

	// GetS3 возвращает клиент архива снапшотов (nil если не настроен).
	GetS3() *s3storage.Client
}

// Compile-time проверки реализации интерфейсов.
var (
	_ UnifiedStore      = (*CoreState)(nil)
	_ MessageRepository = (*CoreState)(nil)
	_ SessionRepository = (*CoreState)(nil)
	_ StorageRepository = (*CoreState)(nil)
)
