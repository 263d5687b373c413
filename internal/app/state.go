// Package app предоставляет состояние TUI приложения (EditorState).
//
// EditorState содержит application-specific логику TUI редактора и
// оборачивает переиспользуемые компоненты из pkg/app.
//
// Package app следует правилам из dev_manifest.md:
//   - Rule 5: Thread-safe доступ через sync.RWMutex
//   - Rule 6: Application-specific логика, может импортировать pkg/
//   - Rule 7: Все ошибки возвращаются, никаких panic
package app

import (
	"sync"

	"github.com/ilkoid/redactor-ai/pkg/agent"
	"github.com/ilkoid/redactor-ai/pkg/app"
)

// EditorState представляет состояние TUI приложения.
//
// Оборачивает Components (framework логика) и добавляет
// application-specific поля для интерфейса редактора.
type EditorState struct {
	// Components - переиспользуемые компоненты (документ, движок,
	// инструменты, оркестратор, состояние сессии)
	Components *app.Components

	// CommandRegistry - реестр TUI команд (/open, /save, ...)
	CommandRegistry *CommandRegistry

	// mu защищает CurrentFile, IsProcessing
	mu sync.RWMutex

	// CurrentFile - путь открытого файла ("" если ничего не открыто)
	CurrentFile string

	// IsProcessing - флаг занятости агента (для спиннера и блокировки ввода)
	IsProcessing bool
}

// NewEditorState создает новое состояние приложения поверх компонентов.
func NewEditorState(components *app.Components) *EditorState {
	s := &EditorState{
		Components:      components,
		CommandRegistry: NewCommandRegistry(),
	}
	SetupEditorCommands(s.CommandRegistry)
	return s
}

// Orchestrator возвращает цикл диалога как agent.Agent.
//
// Rule 4: UI работает через интерфейс, а не через конкретный тип.
func (s *EditorState) Orchestrator() agent.Agent {
	return s.Components.Orchestrator
}

// SetProcessing меняет статус занятости (для спиннера в UI).
//
// Thread-safe.
func (s *EditorState) SetProcessing(busy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.IsProcessing = busy
}

// GetProcessing возвращает текущий статус занятости.
//
// Thread-safe.
func (s *EditorState) GetProcessing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.IsProcessing
}

// SetCurrentFile запоминает путь открытого файла.
//
// Thread-safe.
func (s *EditorState) SetCurrentFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentFile = path
}

// GetCurrentFile возвращает путь открытого файла.
//
// Thread-safe.
func (s *EditorState) GetCurrentFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentFile
}
