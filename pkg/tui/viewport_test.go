package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

// TestViewportManagerAppend: добавление строк сохраняет оригиналы
// для последующего reflow.
func TestViewportManagerAppend(t *testing.T) {
	vm := NewViewportManager()
	vm.HandleResize(tea.WindowSizeMsg{Width: 80, Height: 24}, 1, 3)

	vm.SetInitialContent("welcome")
	vm.Append("first line")
	vm.Append("second line")

	lines := vm.Lines()
	assert.Equal(t, []string{"welcome", "first line", "second line"}, lines)
}

// TestViewportManagerReflow: длинная строка переносится под ширину окна,
// оригинал остаётся целым.
func TestViewportManagerReflow(t *testing.T) {
	vm := NewViewportManager()
	vm.HandleResize(tea.WindowSizeMsg{Width: 30, Height: 20}, 1, 3)

	long := strings.Repeat("word ", 20)
	vm.Append(long)

	// Оригинальная строка не изменилась
	assert.Equal(t, long, vm.Lines()[0])

	// После ресайза контент переформатируется заново, без паники
	vm.HandleResize(tea.WindowSizeMsg{Width: 120, Height: 20}, 1, 3)
	w, _ := vm.Dimensions()
	assert.Equal(t, 120, w)
}

// TestViewportManagerMinimumSize: высота и ширина не опускаются
// ниже минимума при крошечном окне.
func TestViewportManagerMinimumSize(t *testing.T) {
	vm := NewViewportManager()
	vm.HandleResize(tea.WindowSizeMsg{Width: 5, Height: 2}, 1, 3)

	w, h := vm.Dimensions()
	assert.Equal(t, 20, w)
	assert.Equal(t, 1, h)
}

// TestViewportManagerReplaceLast: ReplaceLast обновляет последнюю строку
// (стриминг контента) и работает на пустом логе.
func TestViewportManagerReplaceLast(t *testing.T) {
	vm := NewViewportManager()
	vm.HandleResize(tea.WindowSizeMsg{Width: 80, Height: 24}, 1, 3)

	vm.ReplaceLast("partial")
	assert.Equal(t, []string{"partial"}, vm.Lines())

	vm.Append("AI > ")
	vm.ReplaceLast("AI > hello")
	assert.Equal(t, []string{"partial", "AI > hello"}, vm.Lines())
}
