// Красота

package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ilkoid/redactor-ai/pkg/tui"
)

var scheme = tui.DefaultColorScheme()

var (
	// Стили хедера
	headerStyle = lipgloss.NewStyle().
			Foreground(scheme.StatusForeground).
			Background(scheme.StatusBackground).
			Padding(0, 1).
			Bold(true)

	borderStyle = lipgloss.NewStyle().
			Foreground(scheme.Border)

	// Стили для сообщений в логе
	userMsgStyle = lipgloss.NewStyle().
			Foreground(scheme.UserMessage).
			Bold(true).
			Render

	aiMsgStyle = lipgloss.NewStyle().
			Foreground(scheme.AIMessage).
			Render

	systemMsgStyle = lipgloss.NewStyle().
			Foreground(scheme.SystemMessage).
			Render

	errorMsgStyle = lipgloss.NewStyle().
			Foreground(scheme.ErrorMessage).
			Bold(true).
			Render

	thinkingStyle = lipgloss.NewStyle().
			Foreground(scheme.ThinkingDim).
			Italic(true).
			Render

	toolNoteStyle = lipgloss.NewStyle().
			Foreground(scheme.ToolNote).
			Render
)
