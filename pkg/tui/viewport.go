// Управление вьюпортом лога с word-wrap и умным скроллом.

package tui

import (
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wrap"
)

// ViewportManager — thread-safe обёртка над bubbles viewport.
//
// Хранит оригинальные строки лога без переносов: при изменении ширины
// окна контент переформатируется заново (reflow), а не обрезается.
//
// Инварианты скролла:
//   - wasAtBottom вычисляется ДО смены высоты
//   - высота никогда не опускается ниже 1
//   - YOffset ограничивается maxOffset после reflow
type ViewportManager struct {
	viewport viewport.Model
	logLines []string // строки без word-wrap, источник истины для reflow
	mu       sync.RWMutex
}

// NewViewportManager создаёт менеджер с пустым вьюпортом.
func NewViewportManager() *ViewportManager {
	return &ViewportManager{
		viewport: viewport.New(0, 0),
		logLines: []string{},
	}
}

// HandleResize обрабатывает изменение размера окна терминала.
//
// headerHeight и footerHeight вычитаются из высоты окна.
func (vm *ViewportManager) HandleResize(msg tea.WindowSizeMsg, headerHeight, footerHeight int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vpHeight := msg.Height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	vpWidth := msg.Width
	if vpWidth < 20 {
		vpWidth = 20
	}

	// wasAtBottom считается до смены высоты, иначе позиция теряется
	totalLinesBefore := vm.viewport.TotalLineCount()
	wasAtBottom := vm.viewport.YOffset+vm.viewport.Height >= totalLinesBefore

	vm.viewport.Height = vpHeight
	vm.viewport.Width = vpWidth

	vm.viewport.SetContent(vm.reflow(vpWidth))

	if wasAtBottom {
		vm.viewport.GotoBottom()
		return
	}

	maxOffset := vm.viewport.TotalLineCount() - vm.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if vm.viewport.YOffset > maxOffset {
		vm.viewport.YOffset = maxOffset
	}
}

// Append добавляет строку в лог.
//
// Если вьюпорт был прокручен в самый низ, остаётся внизу;
// иначе позиция чтения сохраняется.
func (vm *ViewportManager) Append(content string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.logLines = append(vm.logLines, content)

	wasAtBottom := vm.viewport.YOffset+vm.viewport.Height >= vm.viewport.TotalLineCount()
	vm.viewport.SetContent(vm.reflow(vm.viewport.Width))
	if wasAtBottom {
		vm.viewport.GotoBottom()
	}
}

// ReplaceLast заменяет последнюю строку лога (для стриминга).
func (vm *ViewportManager) ReplaceLast(content string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if len(vm.logLines) == 0 {
		vm.logLines = []string{content}
	} else {
		vm.logLines[len(vm.logLines)-1] = content
	}

	vm.viewport.SetContent(vm.reflow(vm.viewport.Width))
	vm.viewport.GotoBottom()
}

// reflow переформатирует весь лог под ширину. Вызывать под мьютексом.
func (vm *ViewportManager) reflow(width int) string {
	if width <= 0 {
		return strings.Join(vm.logLines, "\n")
	}
	var wrapped []string
	for _, line := range vm.logLines {
		wrapped = append(wrapped, strings.Split(wrap.String(line, width), "\n")...)
	}
	return strings.Join(wrapped, "\n")
}

// SetInitialContent задаёт стартовый контент (приветствие).
func (vm *ViewportManager) SetInitialContent(content string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.logLines = []string{content}
	vm.viewport.SetContent(content)
	vm.viewport.YOffset = 0
}

// Lines возвращает оригинальные строки лога.
func (vm *ViewportManager) Lines() []string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	out := make([]string, len(vm.logLines))
	copy(out, vm.logLines)
	return out
}

// View возвращает отрендеренный вьюпорт.
func (vm *ViewportManager) View() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.viewport.View()
}

// ScrollUp прокручивает лог вверх на n строк.
func (vm *ViewportManager) ScrollUp(n int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.viewport.ScrollUp(n)
}

// ScrollDown прокручивает лог вниз на n строк.
func (vm *ViewportManager) ScrollDown(n int) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.viewport.ScrollDown(n)
}

// GotoBottom прокручивает лог в самый низ.
func (vm *ViewportManager) GotoBottom() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.viewport.GotoBottom()
}

// Dimensions возвращает текущие размеры вьюпорта.
func (vm *ViewportManager) Dimensions() (width, height int) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.viewport.Width, vm.viewport.Height
}
