// Package tui предоставляет color schemes и стили для TUI компонентов.
//
// ColorSchemes позволяют кастомизировать внешний вид редактора
// через конфигурацию без изменения кода.
package tui

import "github.com/charmbracelet/lipgloss"

// ColorScheme определяет цвета для различных элементов TUI.
//
// Каждое поле - это lipgloss.Color (hex, ANSI или named color).
type ColorScheme struct {
	// Status Bar
	StatusBackground lipgloss.Color // Фон статус-бара
	StatusForeground lipgloss.Color // Текст в статус-баре

	// Messages
	SystemMessage lipgloss.Color // Системные сообщения (серый)
	UserMessage   lipgloss.Color // Сообщения пользователя (желтый)
	AIMessage     lipgloss.Color // Ответы редактора (cyan)
	ErrorMessage  lipgloss.Color // Ошибки (красный)
	Thinking      lipgloss.Color // Thinking content (purple)
	ThinkingDim   lipgloss.Color // Thinking content dim gray
	ToolNote      lipgloss.Color // Заметки о вызовах инструментов

	// Input Area
	InputPrompt lipgloss.Color // Приглашение ввода

	// UI Elements
	Border lipgloss.Color // Границы и разделители
}

// ColorSchemes предоставляет предустановленные цветовые схемы.
var ColorSchemes = map[string]ColorScheme{
	"default": {
		StatusBackground: lipgloss.Color("235"),
		StatusForeground: lipgloss.Color("252"),
		SystemMessage:    lipgloss.Color("242"),
		UserMessage:      lipgloss.Color("226"),
		AIMessage:        lipgloss.Color("86"),
		ErrorMessage:     lipgloss.Color("196"),
		Thinking:         lipgloss.Color("99"),
		ThinkingDim:      lipgloss.Color("245"),
		ToolNote:         lipgloss.Color("110"),
		InputPrompt:      lipgloss.Color("252"),
		Border:           lipgloss.Color("240"),
	},
	"dark": {
		StatusBackground: lipgloss.Color("0"),
		StatusForeground: lipgloss.Color("15"),
		SystemMessage:    lipgloss.Color("8"),
		UserMessage:      lipgloss.Color("11"),
		AIMessage:        lipgloss.Color("14"),
		ErrorMessage:     lipgloss.Color("9"),
		Thinking:         lipgloss.Color("13"),
		ThinkingDim:      lipgloss.Color("7"),
		ToolNote:         lipgloss.Color("12"),
		InputPrompt:      lipgloss.Color("15"),
		Border:           lipgloss.Color("4"),
	},
	"dracula": {
		StatusBackground: lipgloss.Color("#282a36"),
		StatusForeground: lipgloss.Color("#f8f8f2"),
		SystemMessage:    lipgloss.Color("#6272a4"),
		UserMessage:      lipgloss.Color("#f1fa8c"),
		AIMessage:        lipgloss.Color("#8be9fd"),
		ErrorMessage:     lipgloss.Color("#ff5555"),
		Thinking:         lipgloss.Color("#bd93f9"),
		ThinkingDim:      lipgloss.Color("#44475a"),
		ToolNote:         lipgloss.Color("#50fa7b"),
		InputPrompt:      lipgloss.Color("#f8f8f2"),
		Border:           lipgloss.Color("#44475a"),
	},
}

// DefaultColorScheme возвращает схему по умолчанию.
func DefaultColorScheme() ColorScheme {
	return ColorSchemes["default"]
}

// GetColorScheme возвращает цветовую схему по имени.
//
// Если схема не найдена, возвращает default.
func GetColorScheme(name string) ColorScheme {
	if scheme, ok := ColorSchemes[name]; ok {
		return scheme
	}
	return DefaultColorScheme()
}
