// Режим вопроса: инструмент ask_user_question заблокирован на ответе,
// UI показывает варианты и ждёт выбора цифрой.

package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/redactor-ai/pkg/questions"
)

// checkForPendingQuestions проверяет QuestionManager и при наличии
// вопроса переводит UI в режим выбора варианта.
//
// Возвращает true если вопрос найден и показан.
func (m *MainModel) checkForPendingQuestions() bool {
	qm := m.editorState.Components.QuestionManager
	if qm == nil || !qm.HasPendingQuestions() {
		return false
	}

	id := qm.GetFirstPendingID()
	pq, ok := qm.GetQuestion(id)
	if !ok {
		return false
	}

	// Уже показан
	if m.questionMode && m.currentQuestionID == id {
		return true
	}

	m.questionMode = true
	m.currentQuestionID = id
	m.viewport.Append(renderQuestion(pq))
	return true
}

// renderQuestion форматирует вопрос и пронумерованные варианты.
func renderQuestion(pq *questions.PendingQuestion) string {
	var b strings.Builder
	b.WriteString(systemMsgStyle("ВОПРОС: " + pq.Question))
	for i, opt := range pq.Options {
		line := fmt.Sprintf("  %d. %s", i+1, opt.Label)
		if opt.Description != "" {
			line += " — " + opt.Description
		}
		b.WriteString("\n" + systemMsgStyle(line))
	}
	b.WriteString("\n" + systemMsgStyle("Выберите 1-"+strconv.Itoa(len(pq.Options))+" (Esc — отмена)"))
	return b.String()
}

// handleQuestionKey обрабатывает клавиши в режиме вопроса.
//
// Цифры 1-5 выбирают вариант, Esc отменяет вопрос.
func (m MainModel) handleQuestionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	qm := m.editorState.Components.QuestionManager

	switch msg.Type {
	case tea.KeyCtrlC:
		qm.Cancel(m.currentQuestionID, "user_quit")
		return m, tea.Quit

	case tea.KeyEsc:
		qm.Cancel(m.currentQuestionID, "user_cancelled")
		m.exitQuestionMode()
		m.viewport.Append(systemMsgStyle("Вопрос отменён."))
		return m, nil
	}

	key := msg.String()
	if len(key) != 1 || key < "1" || key > "9" {
		return m, nil
	}
	index := int(key[0]-'0') - 1

	pq, ok := qm.GetQuestion(m.currentQuestionID)
	if !ok {
		// Вопрос истёк по таймауту пока ждали ввода
		m.exitQuestionMode()
		return m, nil
	}
	if !pq.IsValidIndex(index) {
		return m, nil
	}

	opt, _ := pq.GetOption(index)
	err := qm.SubmitAnswer(m.currentQuestionID, questions.QuestionAnswer{
		Index:       index,
		Label:       opt.Label,
		Description: opt.Description,
		Timestamp:   time.Now(),
	})
	if err != nil {
		m.viewport.Append(errorMsgStyle("ERROR: ") + err.Error())
		m.exitQuestionMode()
		return m, nil
	}

	m.viewport.Append(userMsgStyle("ОТВЕТ > ") + opt.Label)
	m.exitQuestionMode()

	// Агент продолжает работу, возобновляем опрос на случай следующего вопроса
	return m, pollQuestionsCmd()
}

func (m *MainModel) exitQuestionMode() {
	m.questionMode = false
	m.currentQuestionID = ""
}
