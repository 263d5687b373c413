// Package state предоставляет thread-safe core состояние редактора.
//
// CoreState содержит переиспользуемую логику сессии:
// - Конфигурацию приложения
// - Идентификатор сессии (для истории и архива снапшотов)
// - Историю диалога (User <-> Agent)
// - Реестр инструментов (tools registry)
// - Архив снапшотов (S3, опционально)
// - Унифицированное хранилище произвольных значений
//
// Package state следует правилам из dev_manifest.md:
//   - Rule 5: Thread-safe доступ через sync.RWMutex, никаких глобальных переменных
//   - Rule 6: Library code готовый к переиспользованию, без зависимостей от internal/
//   - Rule 7: Все ошибки возвращаются, никаких panic в бизнес-логике
package state

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/s3storage"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// CoreState представляет thread-safe core состояние сессии редактора.
//
// Может использоваться в различных приложениях: CLI, TUI, batch пайплайны.
//
// Rule 5: Все изменения runtime полей (History, store) защищены мьютексом.
// Rule 6: Не зависит от internal/, готов к переиспользованию.
type CoreState struct {
	// Config - конфигурация приложения (Rule 2: YAML with ENV support)
	Config *config.AppConfig

	// S3 - архив снапшотов документа (опционально, может быть nil)
	S3 *s3storage.Client

	// ToolsRegistry - реестр инструментов (Rule 3)
	ToolsRegistry *tools.Registry

	// sessionID — идентификатор сессии диалога.
	// Используется как ключ истории в sqlite и префикс в архиве снапшотов.
	sessionID string

	// docType — тип открытого документа ("text", ...), фильтрует инструменты
	docType string

	// mu защищает History, store и runtime поля (Rule 5: Thread-safe)
	mu sync.RWMutex

	// History - хронология диалога (User <-> Agent).
	// Сюда попадают и tool calls с результатами: модель видит их в контексте.
	History []llm.Message

	// store - унифицированное хранилище произвольных значений приложения
	store map[string]any
}

// NewCoreState создает новое thread-safe core состояние с новой сессией.
//
// ToolsRegistry должен быть установлен после создания.
//
// Rule 5: Возвращает готовую к использованию thread-safe структуру.
// Rule 7: Никаких panic при nil конфигурации - валидация делегируется вызывающему.
func NewCoreState(cfg *config.AppConfig, s3Client *s3storage.Client) *CoreState {
	return &CoreState{
		Config:    cfg,
		S3:        s3Client,
		sessionID: uuid.NewString(),
		docType:   "text",
		History:   make([]llm.Message, 0),
		store:     make(map[string]any),
	}
}

// SessionID возвращает идентификатор текущей сессии.
func (s *CoreState) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// ResetSession начинает новую сессию: очищает историю и выдаёт новый ID.
//
// Thread-safe.
func (s *CoreState) ResetSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = uuid.NewString()
	s.History = make([]llm.Message, 0)
	return s.sessionID
}

// DocType возвращает тип открытого документа.
func (s *CoreState) DocType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docType
}

// SetDocType устанавливает тип открытого документа.
//
// Thread-safe.
func (s *CoreState) SetDocType(docType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docType = docType
}

// GetS3 возвращает клиент архива снапшотов (может быть nil).
func (s *CoreState) GetS3() *s3storage.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.S3
}

// SetToolsRegistry устанавливает реестр инструментов.
//
// Rule 3: Все инструменты регистрируются через Registry.Register().
// Rule 5: Thread-safe доступ к полям структуры.
func (s *CoreState) SetToolsRegistry(registry *tools.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ToolsRegistry = registry
}

// GetToolsRegistry возвращает реестр инструментов.
//
// Rule 5: Thread-safe доступ к полям структуры.
func (s *CoreState) GetToolsRegistry() *tools.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ToolsRegistry
}

// --- Thread-Safe History Methods (Rule 5) ---

// AppendMessage безопасно добавляет сообщение в историю диалога.
//
// Rule 5: Thread-safe доступ к History.
func (s *CoreState) AppendMessage(msg llm.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = append(s.History, msg)
}

// GetHistory возвращает копию истории диалога.
//
// Возвращает копию слайса, чтобы избежать race condition при изменении.
//
// Rule 5: Thread-safe доступ к History.
func (s *CoreState) GetHistory() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dst := make([]llm.Message, len(s.History))
	copy(dst, s.History)
	return dst
}

// ClearHistory очищает историю диалога без смены сессии.
//
// Rule 5: Thread-safe доступ к History.
func (s *CoreState) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.History = make([]llm.Message, 0)
}

// BuildConversation собирает полный контекст для запроса к модели:
// системный промпт плюс история диалога.
//
// Rule 5: Thread-safe доступ к полям.
// Rule 7: Возвращает корректный массив даже при пустых данных.
func (s *CoreState) BuildConversation(systemPrompt string) []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]llm.Message, 0, len(s.History)+1)
	if systemPrompt != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, s.History...)
	return messages
}

// --- UnifiedStore (произвольные значения приложения) ---

// Get возвращает значение по ключу.
//
// Rule 5: Thread-safe доступ к store.
func (s *CoreState) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.store[key]
	return val, ok
}

// Set сохраняет значение по ключу.
//
// Зарезервированные ключи (KeyHistory и др.) защищены: для них есть
// типизированные методы, запись через Set возвращает ErrKeyReserved.
func (s *CoreState) Set(key string, value any) error {
	if IsReservedKey(key) {
		return WrapReservedKey(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = value
	return nil
}

// Update атомарно обновляет значение по ключу.
//
// fn получает текущее значение (или nil если ключ не существует)
// и возвращает новое. Если fn возвращает nil — ключ удаляется.
func (s *CoreState) Update(key string, fn func(any) any) error {
	if IsReservedKey(key) {
		return WrapReservedKey(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(s.store[key])
	if next == nil {
		delete(s.store, key)
		return nil
	}
	s.store[key] = next
	return nil
}

// Delete удаляет значение по ключу.
func (s *CoreState) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[key]; !ok {
		return WrapKeyNotFound(key)
	}
	delete(s.store, key)
	return nil
}

// Exists проверяет существование ключа.
func (s *CoreState) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.store[key]
	return ok
}

// List возвращает все ключи в хранилище. Порядок не гарантирован.
func (s *CoreState) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.store))
	for k := range s.store {
		keys = append(keys, k)
	}
	return keys
}
