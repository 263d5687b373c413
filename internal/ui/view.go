// Отрисовка: статусная строка, лог чата, поле ввода.

package ui

import (
	"fmt"
	"strings"
)

func (m MainModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.headerView(),
		m.viewport.View(),
		m.footerSeparator(),
		m.textarea.View(),
	)
}

// headerView собирает статусную строку: файл, модель, статус агента.
func (m MainModel) headerView() string {
	file := m.editorState.GetCurrentFile()
	if file == "" {
		file = "(новый документ)"
	}

	left := fmt.Sprintf(" %s | %s ", file, m.editorState.Components.ModelName)
	right := fmt.Sprintf(" %s ", m.status)

	width, _ := m.viewport.Dimensions()
	gap := width - len([]rune(left)) - len([]rune(right))
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func (m MainModel) footerSeparator() string {
	width, _ := m.viewport.Dimensions()
	if width < 1 {
		width = 20
	}
	return borderStyle.Render(strings.Repeat("─", width))
}
