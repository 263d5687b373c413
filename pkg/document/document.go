// Package document реализует модель стилизованного текстового документа.
//
// Документ — плоская последовательность пар (руна, стиль) плюс стили
// абзацев. Абзацы разделяются рунами '\n'; стиль абзаца хранится отдельно
// от символьных стилей. Модель намеренно не знает ничего про разметку:
// экспорт/импорт markdown живёт в markdown.go, правки — в pkg/patch.
//
// # Thread Safety
//
// Документ НЕ потокобезопасен. Владелец документа — координатор цикла
// диалога (pkg/agent); инструменты выполняются по одному, поэтому
// дополнительная синхронизация не нужна.
package document

import (
	"fmt"
	"strings"
)

// Ключи атрибутов символьного стиля.
//
// Значения атрибутов — произвольные строки; движок правок копирует
// StyleRun целиком, не интерпретируя содержимое (кроме экспорта разметки).
const (
	AttrBold   = "bold"   // "true" => жирный
	AttrItalic = "italic" // "true" => курсив
	AttrCode   = "code"   // "true" => моноширинный
	AttrColor  = "color"  // произвольное значение цвета
)

// Имена стилей абзаца.
const (
	ParaDefault    = ""
	ParaHeading1   = "Heading 1"
	ParaHeading2   = "Heading 2"
	ParaHeading3   = "Heading 3"
	ParaHeading4   = "Heading 4"
	ParaHeading5   = "Heading 5"
	ParaHeading6   = "Heading 6"
	ParaListBullet = "List Bullet"
	ParaListNumber = "List Number"
	ParaQuote      = "Quote"
)

// StyleRun — непрозрачный набор атрибутов символа.
//
// Копируется целиком (по ссылке), атрибуты никогда не перечисляются
// при наследовании: вставленный символ получает ровно тот же StyleRun,
// что и символ-источник.
type StyleRun map[string]string

// Style создаёт StyleRun из пар ключ-значение.
func Style(pairs ...string) StyleRun {
	s := make(StyleRun, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		s[pairs[i]] = pairs[i+1]
	}
	return s
}

// Has проверяет булев атрибут стиля.
func (s StyleRun) Has(attr string) bool {
	return s != nil && s[attr] == "true"
}

// Document — порт документа для движка правок и экспортёров.
//
// Rule 4: потребители (pkg/patch, инструменты) работают через интерфейс,
// конкретная реализация (TextDocument, обёртки над внешними буферами)
// скрыта за ним.
type Document interface {
	// Length возвращает длину текста в рунах (разрывы абзацев считаются).
	Length() int

	// PlainText возвращает весь текст, абзацы разделены '\n'.
	PlainText() string

	// RuneAt возвращает руну по смещению.
	RuneAt(offset int) rune

	// StyleAt возвращает стиль символа по смещению (nil для разрыва абзаца).
	StyleAt(offset int) StyleRun

	// ReplaceAt заменяет руну по смещению, сохраняя её стиль.
	ReplaceAt(offset int, r rune) error

	// InsertAt вставляет текст по смещению с единым стилем.
	InsertAt(offset int, text string, style StyleRun) error

	// DeleteRange удаляет [start, end).
	DeleteRange(start, end int) error

	// ParagraphCount возвращает число абзацев.
	ParagraphCount() int

	// ParagraphSpan возвращает [start, end) абзаца без завершающего '\n'.
	ParagraphSpan(i int) (start, end int)

	// ParagraphStyle возвращает стиль абзаца.
	ParagraphStyle(i int) string

	// SetParagraphStyle устанавливает стиль абзаца.
	SetParagraphStyle(i int, style string) error

	// ParagraphIndexAt возвращает индекс абзаца, содержащего смещение.
	ParagraphIndexAt(offset int) int
}

// Проверка реализации интерфейса
var _ Document = (*TextDocument)(nil)

// TextDocument — эталонная in-memory реализация Document.
type TextDocument struct {
	runes  []rune
	styles []StyleRun

	// paraStyles[i] — стиль i-го абзаца; len == число '\n' + 1
	paraStyles []string
}

// New создаёт пустой документ (один пустой абзац).
func New() *TextDocument {
	return &TextDocument{paraStyles: []string{ParaDefault}}
}

// NewFromText создаёт документ из простого текста с единым стилем.
// Каждый '\n' начинает новый абзац со стилем по умолчанию.
func NewFromText(text string, style StyleRun) *TextDocument {
	d := New()
	// Вставка в пустой документ не может вернуть ошибку
	_ = d.InsertAt(0, text, style)
	return d
}

// Length возвращает длину текста в рунах.
func (d *TextDocument) Length() int {
	return len(d.runes)
}

// PlainText возвращает весь текст документа.
func (d *TextDocument) PlainText() string {
	return string(d.runes)
}

// RuneAt возвращает руну по смещению.
func (d *TextDocument) RuneAt(offset int) rune {
	return d.runes[offset]
}

// StyleAt возвращает стиль символа по смещению.
func (d *TextDocument) StyleAt(offset int) StyleRun {
	return d.styles[offset]
}

// checkRange валидирует границы [start, end).
func (d *TextDocument) checkRange(start, end int) error {
	if start < 0 || end > len(d.runes) || start > end {
		return fmt.Errorf("range [%d,%d) out of bounds (len=%d)", start, end, len(d.runes))
	}
	return nil
}

// ReplaceAt заменяет руну по смещению, сохраняя стиль позиции.
//
// Замена '\n' на обычный символ сливает абзацы; замена обычного символа
// на '\n' разбивает абзац (новый абзац наследует стиль исходного).
func (d *TextDocument) ReplaceAt(offset int, r rune) error {
	if err := d.checkRange(offset, offset+1); err != nil {
		return err
	}

	old := d.runes[offset]
	if old == r {
		return nil
	}

	para := d.ParagraphIndexAt(offset)
	switch {
	case old == '\n' && r != '\n':
		// Слияние: стиль остаётся у первого из двух абзацев
		d.paraStyles = append(d.paraStyles[:para+1], d.paraStyles[para+2:]...)
	case old != '\n' && r == '\n':
		// Разбиение: хвост наследует стиль абзаца
		d.paraStyles = append(d.paraStyles, "")
		copy(d.paraStyles[para+2:], d.paraStyles[para+1:])
		d.paraStyles[para+1] = d.paraStyles[para]
	}

	d.runes[offset] = r
	return nil
}

// InsertAt вставляет текст по смещению с единым стилем.
//
// Каждый вставленный '\n' разбивает абзац; новые абзацы наследуют
// стиль абзаца, в который велась вставка.
func (d *TextDocument) InsertAt(offset int, text string, style StyleRun) error {
	if err := d.checkRange(offset, offset); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	ins := []rune(text)
	para := d.ParagraphIndexAt(offset)
	inherited := d.paraStyles[para]

	// 1. Вставляем руны и стили
	d.runes = append(d.runes[:offset], append(ins, d.runes[offset:]...)...)

	insStyles := make([]StyleRun, len(ins))
	for i := range insStyles {
		insStyles[i] = style
	}
	d.styles = append(d.styles[:offset], append(insStyles, d.styles[offset:]...)...)

	// 2. Регистрируем новые абзацы
	breaks := strings.Count(text, "\n")
	for i := 0; i < breaks; i++ {
		d.paraStyles = append(d.paraStyles, "")
		copy(d.paraStyles[para+2:], d.paraStyles[para+1:])
		d.paraStyles[para+1] = inherited
	}

	return nil
}

// DeleteRange удаляет [start, end).
//
// Удалённые '\n' сливают абзацы: выживает стиль первого.
func (d *TextDocument) DeleteRange(start, end int) error {
	if err := d.checkRange(start, end); err != nil {
		return err
	}
	if start == end {
		return nil
	}

	para := d.ParagraphIndexAt(start)
	breaks := 0
	for i := start; i < end; i++ {
		if d.runes[i] == '\n' {
			breaks++
		}
	}

	d.runes = append(d.runes[:start], d.runes[end:]...)
	d.styles = append(d.styles[:start], d.styles[end:]...)

	if breaks > 0 {
		d.paraStyles = append(d.paraStyles[:para+1], d.paraStyles[para+1+breaks:]...)
	}

	return nil
}

// ParagraphCount возвращает число абзацев.
func (d *TextDocument) ParagraphCount() int {
	return len(d.paraStyles)
}

// ParagraphIndexAt возвращает индекс абзаца, содержащего смещение.
//
// Смещение разрыва '\n' принадлежит абзацу перед ним;
// offset == Length() принадлежит последнему абзацу.
func (d *TextDocument) ParagraphIndexAt(offset int) int {
	idx := 0
	for i := 0; i < offset && i < len(d.runes); i++ {
		if d.runes[i] == '\n' {
			idx++
		}
	}
	return idx
}

// ParagraphSpan возвращает [start, end) абзаца i без завершающего '\n'.
func (d *TextDocument) ParagraphSpan(i int) (int, int) {
	start := 0
	idx := 0
	for pos, r := range d.runes {
		if r == '\n' {
			if idx == i {
				return start, pos
			}
			idx++
			start = pos + 1
		}
	}
	// Последний абзац (без завершающего '\n')
	return start, len(d.runes)
}

// ParagraphStyle возвращает стиль абзаца.
func (d *TextDocument) ParagraphStyle(i int) string {
	if i < 0 || i >= len(d.paraStyles) {
		return ParaDefault
	}
	return d.paraStyles[i]
}

// SetParagraphStyle устанавливает стиль абзаца.
func (d *TextDocument) SetParagraphStyle(i int, style string) error {
	if i < 0 || i >= len(d.paraStyles) {
		return fmt.Errorf("paragraph %d out of range (count=%d)", i, len(d.paraStyles))
	}
	d.paraStyles[i] = style
	return nil
}

// Clone возвращает глубокую копию структуры документа.
// Сами StyleRun разделяются (они immutable по соглашению).
func (d *TextDocument) Clone() *TextDocument {
	c := &TextDocument{
		runes:      make([]rune, len(d.runes)),
		styles:     make([]StyleRun, len(d.styles)),
		paraStyles: make([]string, len(d.paraStyles)),
	}
	copy(c.runes, d.runes)
	copy(c.styles, d.styles)
	copy(c.paraStyles, d.paraStyles)
	return c
}

// InsertFragment вставляет содержимое фрагмента по смещению,
// сохраняя посимвольные стили и стили абзацев фрагмента.
//
// Алгоритм:
//  1. Вставляем руны фрагмента (разрывы регистрируют новые абзацы)
//  2. Переносим посимвольные стили фрагмента как есть
//  3. Применяем стили абзацев фрагмента ко всем абзацам,
//     пересекающим вставленный диапазон
func (d *TextDocument) InsertFragment(offset int, frag *TextDocument) error {
	if err := d.checkRange(offset, offset); err != nil {
		return err
	}
	if frag.Length() == 0 {
		return nil
	}

	if err := d.InsertAt(offset, frag.PlainText(), nil); err != nil {
		return err
	}

	// Переносим посимвольные стили
	copy(d.styles[offset:offset+frag.Length()], frag.styles)

	// Применяем стили абзацев фрагмента. Первый абзац смешанный
	// (в нём может быть текст хозяина до offset), поэтому его стиль
	// перекрывается только ненулевым стилем фрагмента; абзацы,
	// созданные разрывами фрагмента, получают его стили безусловно.
	firstPara := d.ParagraphIndexAt(offset)
	for i := 0; i < frag.ParagraphCount(); i++ {
		target := firstPara + i
		if target >= d.ParagraphCount() {
			break
		}
		if i == 0 && frag.ParagraphStyle(i) == ParaDefault {
			continue
		}
		if err := d.SetParagraphStyle(target, frag.ParagraphStyle(i)); err != nil {
			return err
		}
	}

	return nil
}
