// Логика - обрабатывает нажатия клавиш, события агента и результаты команд.

package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/redactor-ai/internal/app"
	"github.com/ilkoid/redactor-ai/pkg/events"
	"github.com/ilkoid/redactor-ai/pkg/tui"
)

// questionPollInterval — период опроса QuestionManager (Polling Pattern).
const questionPollInterval = 200 * time.Millisecond

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var tiCmd tea.Cmd
	// В режиме вопроса клавиши выбирают вариант, а не печатаются в поле ввода
	if _, isKey := msg.(tea.KeyMsg); !isKey || !m.questionMode {
		m.textarea, tiCmd = m.textarea.Update(msg)
	}

	switch msg := msg.(type) {

	// 1. Изменение размера окна терминала
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2 // + граница
		m.viewport.HandleResize(msg, headerHeight, footerHeight)
		m.textarea.SetWidth(msg.Width)
		m.ready = true

	// 2. Клавиши
	case tea.KeyMsg:
		if m.questionMode {
			return m.handleQuestionKey(msg)
		}

		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit

		case tea.KeyEsc:
			// Esc во время обработки прерывает агента, иначе выход
			if m.editorState.GetProcessing() {
				m.editorState.Orchestrator().Stop()
				m.viewport.Append(systemMsgStyle("-- прерывание --"))
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyPgUp:
			m.viewport.ScrollUp(5)

		case tea.KeyPgDown:
			m.viewport.ScrollDown(5)

		case tea.KeyEnter:
			return m.handleInput()
		}

	// 3. Событие от агента (Port & Adapter)
	case tui.EventMsg:
		return m.handleAgentEvent(events.Event(msg))

	// 4. Результат выполнения команды (прилетел асинхронно)
	case app.CommandResultMsg:
		if msg.Err != nil {
			m.viewport.Append(errorMsgStyle("ERROR: ") + msg.Err.Error())
		} else {
			m.viewport.Append(systemMsgStyle("SYSTEM: ") + msg.Output)
		}
		m.textarea.Focus()

	// 5. Агент завершил обработку запроса
	case agentDoneMsg:
		m.editorState.SetProcessing(false)
		if msg.Err != nil {
			m.viewport.Append(errorMsgStyle("ERROR: ") + msg.Err.Error())
			m.status = "Error"
		}
		m.textarea.Focus()

	// 6. Тик опроса вопросов от ask_user_question
	case questionPollMsg:
		if m.checkForPendingQuestions() {
			return m, nil
		}
		// Пока агент работает, продолжаем опрашивать
		if m.editorState.GetProcessing() {
			return m, pollQuestionsCmd()
		}
	}

	return m, tiCmd
}

// handleInput обрабатывает Enter: команда или задача для агента.
func (m MainModel) handleInput() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}

	m.textarea.Reset()
	m.viewport.Append(userMsgStyle("USER > ") + input)

	// Зарегистрированные команды уходят в CommandRegistry,
	// всё остальное — задача для AI-редактора
	first := strings.Fields(input)[0]
	for _, name := range m.editorState.CommandRegistry.GetCommands() {
		if name == first {
			return m, m.editorState.CommandRegistry.Execute(input, m.editorState)
		}
	}

	if m.editorState.GetProcessing() {
		m.viewport.Append(systemMsgStyle("Агент занят. Esc — прервать."))
		return m, nil
	}

	m.editorState.SetProcessing(true)
	m.status = "Thinking..."
	m.streamingContent = false
	m.streamingThinking = false

	return m, tea.Batch(processMessageCmd(m.editorState, input), pollQuestionsCmd())
}

// processMessageCmd запускает агента в фоне.
//
// Результат (и стрим) приходят событиями через eventSub; agentDoneMsg
// нужен только для ошибок и сброса флага занятости.
func processMessageCmd(state *app.EditorState, input string) tea.Cmd {
	return func() tea.Msg {
		_, err := state.Orchestrator().ProcessMessage(context.Background(), input)
		return agentDoneMsg{Err: err}
	}
}

// pollQuestionsCmd возвращает тик опроса QuestionManager.
func pollQuestionsCmd() tea.Cmd {
	return tea.Tick(questionPollInterval, func(time.Time) tea.Msg {
		return questionPollMsg{}
	})
}

// handleAgentEvent обрабатывает событие агента и продолжает подписку.
func (m MainModel) handleAgentEvent(event events.Event) (tea.Model, tea.Cmd) {
	next := tui.WaitForEvent(m.eventSub, func(e events.Event) tea.Msg {
		return tui.EventMsg(e)
	})

	switch event.Type {

	case events.EventThinking:
		m.status = "Thinking..."

	case events.EventThinkingChunk:
		data := event.Data.(events.ThinkingChunkData)
		line := thinkingStyle("[thinking] " + lastChars(data.Accumulated, 200))
		if !m.streamingThinking {
			m.streamingThinking = true
			m.viewport.Append(line)
		} else {
			m.viewport.ReplaceLast(line)
		}

	case events.EventContentChunk:
		data := event.Data.(events.ContentChunkData)
		m.streamingThinking = false
		line := aiMsgStyle("AI > " + data.Accumulated)
		if !m.streamingContent {
			m.streamingContent = true
			m.viewport.Append(line)
		} else {
			m.viewport.ReplaceLast(line)
		}

	case events.EventStatus:
		m.status = event.Data.(events.StatusData).Status

	case events.EventToolCall:
		data := event.Data.(events.ToolCallData)
		m.streamingContent = false
		m.streamingThinking = false
		m.viewport.Append(toolNoteStyle(fmt.Sprintf("[tool] %s %s", data.ToolName, lastChars(data.Args, 80))))
		// ask_user_question блокируется до ответа — запускаем опрос
		if data.ToolName == "ask_user_question" {
			return m, tea.Batch(next, pollQuestionsCmd())
		}

	case events.EventToolResult:
		data := event.Data.(events.ToolResultData)
		m.viewport.Append(toolNoteStyle(fmt.Sprintf("[tool] %s завершён (%.1fs)",
			data.ToolName, data.Duration.Seconds())))

	case events.EventDone:
		data := event.Data.(events.MessageData)
		if !m.streamingContent && data.Content != "" {
			m.viewport.Append(aiMsgStyle("AI > " + data.Content))
		}
		m.streamingContent = false
		m.streamingThinking = false
		m.status = "Ready"

	case events.EventStopped:
		data := event.Data.(events.MessageData)
		if !m.streamingContent && data.Content != "" {
			m.viewport.Append(aiMsgStyle("AI > " + data.Content))
		}
		m.viewport.Append(systemMsgStyle("Остановлено пользователем."))
		m.streamingContent = false
		m.streamingThinking = false
		m.status = "Stopped"

	case events.EventError:
		data := event.Data.(events.ErrorData)
		m.viewport.Append(errorMsgStyle("ERROR: ") + data.Err.Error())
		m.status = "Error"
	}

	return m, next
}

// lastChars возвращает хвост строки в одну линию (для превью стрима).
func lastChars(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return "..." + string(runes[len(runes)-n:])
}
