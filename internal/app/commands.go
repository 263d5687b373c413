// Package app реализует реестр команд TUI.
//
// Позволяет регистрировать обработчики команд и выполнять их асинхронно.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/redactor-ai/pkg/patch"
)

// CommandResultMsg - сообщение с результатом выполнения команды.
type CommandResultMsg struct {
	Output string
	Err    error
}

// CommandHandler — тип функции-обработчика команды.
//
// Принимает EditorState и аргументы команды, возвращает tea.Cmd
// для асинхронного выполнения в Bubble Tea.
type CommandHandler func(state *EditorState, args []string) tea.Cmd

// CommandRegistry — реестр зарегистрированных команд TUI.
//
// Thread-safe: одновременные вызовы безопасны.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[string]CommandHandler
}

// NewCommandRegistry создает новый пустой реестр команд.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[string]CommandHandler),
	}
}

// Register регистрирует новую команду в реестре.
//
// Если команда с таким именем уже существует, она будет перезаписана.
func (r *CommandRegistry) Register(name string, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = handler
}

// Execute выполняет команду и возвращает tea.Cmd для асинхронного выполнения.
//
// Парсит ввод на имя команды и аргументы, находит соответствующий handler.
// Если команда не найдена, возвращает команду с ошибкой.
func (r *CommandRegistry) Execute(input string, state *EditorState) tea.Cmd {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := parts[0]
	args := parts[1:]

	r.mu.RLock()
	handler, exists := r.commands[cmd]
	r.mu.RUnlock()

	if !exists {
		return func() tea.Msg {
			return CommandResultMsg{Err: fmt.Errorf("неизвестная команда: '%s'. Наберите 'help'", cmd)}
		}
	}

	return handler(state, args)
}

// GetCommands возвращает список имен зарегистрированных команд.
func (r *CommandRegistry) GetCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cmds := make([]string, 0, len(r.commands))
	for name := range r.commands {
		cmds = append(cmds, name)
	}
	return cmds
}

// SetupEditorCommands регистрирует команды редактора в реестре.
//
// Команды:
//   - open <path>          — открыть файл
//   - save [path]          — сохранить документ (markdown)
//   - show [start end]     — показать документ или диапазон
//   - find <text>          — найти позиции фрагмента
//   - select <start> <end> — установить выделение
//   - unselect             — сбросить выделение
//   - tools                — каталог инструментов агента
//   - reset                — новая сессия (история очищается)
//   - help                 — справка
func SetupEditorCommands(registry *CommandRegistry) {
	registry.Register("open", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			if len(args) < 1 {
				return CommandResultMsg{Err: fmt.Errorf("использование: open <path>")}
			}
			path := args[0]

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := state.Components.OpenDocument(ctx, path); err != nil {
				return CommandResultMsg{Err: err}
			}
			state.SetCurrentFile(path)
			return CommandResultMsg{Output: fmt.Sprintf("Открыт %s (%d символов)",
				path, state.Components.Document.Length())}
		}
	})

	registry.Register("save", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			path := state.GetCurrentFile()
			if len(args) >= 1 {
				path = args[0]
			}
			if path == "" {
				return CommandResultMsg{Err: fmt.Errorf("использование: save <path> (файл не открыт)")}
			}

			if err := state.Components.SaveDocument(path); err != nil {
				return CommandResultMsg{Err: err}
			}
			state.SetCurrentFile(path)
			return CommandResultMsg{Output: "Сохранено: " + path}
		}
	})

	registry.Register("show", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			req := patch.ReadRequest{Scope: patch.ScopeFull}
			if len(args) >= 2 {
				start, err1 := strconv.Atoi(args[0])
				end, err2 := strconv.Atoi(args[1])
				if err1 != nil || err2 != nil {
					return CommandResultMsg{Err: fmt.Errorf("использование: show [start end]")}
				}
				req = patch.ReadRequest{Scope: patch.ScopeRange, Start: start, End: end}
			}

			res := state.Components.Engine.Read(req)
			if res.Status != patch.StatusSuccess {
				return CommandResultMsg{Err: fmt.Errorf("%s", res.Error)}
			}
			if res.Content == "" {
				return CommandResultMsg{Output: "(документ пуст)"}
			}
			return CommandResultMsg{Output: res.Content}
		}
	})

	registry.Register("find", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			if len(args) < 1 {
				return CommandResultMsg{Err: fmt.Errorf("использование: find <text>")}
			}
			search := strings.Join(args, " ")

			matched, ranges := state.Components.Engine.Resolver().Resolve(search, true)
			if len(ranges) == 0 {
				return CommandResultMsg{Output: "Совпадений нет"}
			}

			var out strings.Builder
			fmt.Fprintf(&out, "Найдено %d (кандидат %q):\n", len(ranges), matched)
			for _, r := range ranges {
				fmt.Fprintf(&out, "  [%d, %d)\n", r.Start, r.End)
			}
			return CommandResultMsg{Output: strings.TrimRight(out.String(), "\n")}
		}
	})

	registry.Register("select", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			if len(args) < 2 {
				return CommandResultMsg{Err: fmt.Errorf("использование: select <start> <end>")}
			}
			start, err1 := strconv.Atoi(args[0])
			end, err2 := strconv.Atoi(args[1])
			if err1 != nil || err2 != nil {
				return CommandResultMsg{Err: fmt.Errorf("start и end должны быть числами")}
			}

			state.Components.Engine.SetSelection(start, end)
			s, e, _ := state.Components.Engine.Selection()
			return CommandResultMsg{Output: fmt.Sprintf("Выделение: [%d, %d)", s, e)}
		}
	})

	registry.Register("unselect", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			state.Components.Engine.ClearSelection()
			return CommandResultMsg{Output: "Выделение сброшено"}
		}
	})

	registry.Register("tools", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			docType := state.Components.State.DocType()
			summaries := state.Components.Tools.Summaries(docType, "")
			if len(summaries) == 0 {
				return CommandResultMsg{Output: "Инструменты не зарегистрированы"}
			}

			var out strings.Builder
			out.WriteString("Инструменты редактора:\n")
			for _, s := range summaries {
				fmt.Fprintf(&out, "  %-25s [%s] %s\n", s.Name, s.Tier, s.Description)
			}
			return CommandResultMsg{Output: strings.TrimRight(out.String(), "\n")}
		}
	})

	registry.Register("reset", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			state.Components.State.ResetSession()
			return CommandResultMsg{Output: "Новая сессия: " + state.Components.State.SessionID()}
		}
	})

	registry.Register("help", func(state *EditorState, args []string) tea.Cmd {
		return func() tea.Msg {
			helpText := `Команды редактора:
  open <path>          - Открыть файл (markdown или plain текст)
  save [path]          - Сохранить документ
  show [start end]     - Показать документ или диапазон
  find <text>          - Найти позиции фрагмента
  select <start> <end> - Установить выделение
  unselect             - Сбросить выделение
  tools                - Каталог инструментов агента
  reset                - Начать новую сессию
  help                 - Показать эту справку

Любой другой ввод уходит AI-редактору как задача.
Esc во время обработки - прервать агента.`
			return CommandResultMsg{Output: helpText}
		}
	})
}
