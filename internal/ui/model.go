// Package ui реализует Model компонент Bubble Tea TUI редактора.
//
// Содержит структуру UI и функцию инициализации.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/redactor-ai/internal/app"
	"github.com/ilkoid/redactor-ai/pkg/events"
	"github.com/ilkoid/redactor-ai/pkg/tui"
)

// agentDoneMsg — результат работы агента (из фоновой горутины).
type agentDoneMsg struct {
	Err error
}

// questionPollMsg — тик опроса QuestionManager (Polling Pattern).
type questionPollMsg struct{}

// MainModel представляет главную модель UI (Bubble Tea Model).
//
// Компоненты:
//   - viewport: область лога чата с word-wrap (только для чтения)
//   - textarea: поле ввода пользователя
//   - editorState: состояние приложения (документ, агент, команды)
//   - eventSub: подписчик на события агента (Port & Adapter)
//
// Мьютексы живут внутри ViewportManager и EditorState, поэтому
// value receiver в Update() безопасен.
type MainModel struct {
	viewport *tui.ViewportManager
	textarea textarea.Model

	editorState *app.EditorState

	// Port & Adapter: подписчик на события агента
	eventSub events.Subscriber

	// status — текущая статусная строка ("Ready", "Running: ...")
	status string

	// ready флаг для первой инициализации размеров
	ready bool

	// streamingContent/streamingThinking — идёт ли стрим в последнюю строку лога
	streamingContent  bool
	streamingThinking bool

	// question mode (ask_user_question tool)
	questionMode      bool
	currentQuestionID string
}

// InitialModel создает начальное состояние UI.
//
// Инициализирует поле ввода с placeholder'ом и вьюпорт лога
// с приветственным сообщением.
func InitialModel(editorState *app.EditorState, eventSub events.Subscriber) MainModel {
	// 1. Настройка поля ввода
	ta := textarea.New()
	ta.Placeholder = "Задача редактору или команда (help)..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	// 2. Настройка вьюпорта (лог чата)
	// Размеры обновятся при первом событии WindowSizeMsg
	vp := tui.NewViewportManager()
	vp.SetInitialContent(fmt.Sprintf("%s\n%s",
		systemMsgStyle("Redactor AI initialized."),
		systemMsgStyle("Наберите 'help' для списка команд."),
	))

	return MainModel{
		textarea:    ta,
		viewport:    vp,
		editorState: editorState,
		eventSub:    eventSub,
		status:      "Ready",
	}
}

// Init запускается один раз при старте Bubble Tea программы.
//
// Возвращает команду для:
//   - Запуска мигания курсора в поле ввода
//   - Чтения событий из агента (Port & Adapter)
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		tui.ReceiveEventCmd(m.eventSub, func(event events.Event) tea.Msg {
			return tui.EventMsg(event)
		}),
	)
}
