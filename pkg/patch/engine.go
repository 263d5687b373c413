// Package patch реализует движок правок документа.
//
// Движок принимает контент от модели (plain текст или разметку),
// определяет целевой диапазон (весь документ, диапазон, поиск,
// начало/конец, выделение) и применяет правку с сохранением
// форматирования: plain текст идёт через посимвольный diff (diff.go),
// разметка рендерится во фрагмент и вставляется целиком.
//
// Соблюдение правил dev_manifest.md:
//   - Работает только через document.Document (Правило 4)
//   - Никаких panic — все сбои упаковываются в ApplyResult (Правило 7)
//   - Уважает context.Context в длинных правках (Правило 11)
package patch

import (
	"context"
	"fmt"

	"github.com/ilkoid/redactor-ai/pkg/document"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

// Статусы результатов.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Области чтения.
const (
	ScopeFull      = "full"
	ScopeSelection = "selection"
	ScopeRange     = "range"
)

// Цели записи.
const (
	TargetFull      = "full"
	TargetRange     = "range"
	TargetSearch    = "search"
	TargetBeginning = "beginning"
	TargetEnd       = "end"
	TargetSelection = "selection"
)

// Выбор вхождений для target=search.
const (
	OccurrenceFirst = "first"
	OccurrenceAll   = "all"
)

// ZeroMatchHint — корректирующая подсказка модели при нулевых совпадениях.
const ZeroMatchHint = "No literal candidate matched. Use find_text to locate the text, then call this tool again with target='range'."

// Engine — движок правок над одним документом.
//
// НЕ потокобезопасен: владелец — координатор цикла диалога,
// инструменты выполняются по одному.
type Engine struct {
	doc      document.Document
	resolver *Resolver

	maxReadChars int
	diffOpts     DiffOptions

	selStart, selEnd int
	hasSelection     bool
}

// Config — конфигурация движка.
type Config struct {
	// MaxReadChars — лимит символов при чтении (0 = без лимита).
	MaxReadChars int

	// Diff — параметры посимвольного diff (yield, отмена).
	Diff DiffOptions
}

// NewEngine создаёт движок над документом.
func NewEngine(doc document.Document, cfg Config) *Engine {
	return &Engine{
		doc:          doc,
		resolver:     NewResolver(doc),
		maxReadChars: cfg.MaxReadChars,
		diffOpts:     cfg.Diff,
	}
}

// Document возвращает документ движка.
func (e *Engine) Document() document.Document { return e.doc }

// Resolver возвращает резолвер поиска движка.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// InvalidateCache сбрасывает кешированное представление документа.
//
// Вызывается реестром инструментов перед mutating инструментом и самим
// движком после применения правки.
func (e *Engine) InvalidateCache() {
	e.resolver.Invalidate()
}

// SetSelection устанавливает текущее выделение (смещения в рунах).
// Диапазон ограничивается границами документа.
func (e *Engine) SetSelection(start, end int) {
	start, end = e.clamp(start, end)
	if start > end {
		start, end = end, start
	}
	e.selStart, e.selEnd = start, end
	e.hasSelection = true
}

// ClearSelection сбрасывает выделение.
func (e *Engine) ClearSelection() {
	e.hasSelection = false
}

// Selection возвращает текущее выделение.
func (e *Engine) Selection() (start, end int, ok bool) {
	return e.selStart, e.selEnd, e.hasSelection
}

func (e *Engine) clamp(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > e.doc.Length() {
		end = e.doc.Length()
	}
	if start > e.doc.Length() {
		start = e.doc.Length()
	}
	if end < 0 {
		end = 0
	}
	return start, end
}

// ReadRequest — запрос на чтение документа.
type ReadRequest struct {
	Scope    string // full | selection | range
	Start    int    // для range
	End      int    // для range
	MaxChars int    // 0 = дефолт движка
}

// ReadResult — результат чтения.
type ReadResult struct {
	Status         string `json:"status"`
	Content        string `json:"content"`
	Length         int    `json:"length"`
	DocumentLength int    `json:"document_length"`
	Truncated      bool   `json:"truncated,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Read возвращает разметку документа для модели.
//
// Чтение диапазона рендерит только пересекаемые абзацы: стиль абзаца
// (заголовок, список) сохраняется в префиксах даже при частичном
// пересечении.
func (e *Engine) Read(req ReadRequest) ReadResult {
	var start, end int

	switch req.Scope {
	case ScopeFull, "":
		start, end = 0, e.doc.Length()
	case ScopeSelection:
		if !e.hasSelection {
			return ReadResult{Status: StatusError, Error: "no selection"}
		}
		start, end = e.selStart, e.selEnd
	case ScopeRange:
		start, end = e.clamp(req.Start, req.End)
		if start > end {
			return ReadResult{Status: StatusError, Error: fmt.Sprintf("invalid range [%d,%d)", req.Start, req.End)}
		}
	default:
		return ReadResult{Status: StatusError, Error: fmt.Sprintf("unknown scope: %s", req.Scope)}
	}

	content := document.ExportMarkdown(e.doc, start, end)

	maxChars := req.MaxChars
	if maxChars == 0 {
		maxChars = e.maxReadChars
	}
	content, truncated := document.Truncate(content, maxChars)

	return ReadResult{
		Status:         StatusSuccess,
		Content:        content,
		Length:         len([]rune(content)),
		DocumentLength: e.doc.Length(),
		Truncated:      truncated,
	}
}

// ApplyRequest — запрос на правку документа.
type ApplyRequest struct {
	Content string
	Target  string // full | range | search | beginning | end | selection

	// Для target=range
	Start, End int

	// Для target=search
	Search        string
	Occurrence    string // first (default) | all
	CaseSensitive bool
}

// ApplyResult — результат правки.
type ApplyResult struct {
	Status       string `json:"status"`
	Message      string `json:"message,omitempty"`
	Replacements int    `json:"replacements"`
	Hint         string `json:"hint,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Apply применяет правку к документу.
//
// Алгоритм:
//  1. Разрешаем целевые диапазоны (для search — через резолвер кандидатов)
//  2. Для каждого диапазона: разметка -> фрагмент + вставка,
//     plain -> посимвольный diff с сохранением стилей
//  3. Ноль совпадений поиска — это успех с Replacements=0 и подсказкой:
//     модель получает шанс скорректировать вызов вместо падения цикла
func (e *Engine) Apply(ctx context.Context, req ApplyRequest) ApplyResult {
	before := e.doc.PlainText()

	spans, errResult := e.resolveSpans(req)
	if errResult != nil {
		return *errResult
	}

	if len(spans) == 0 {
		// Нулевые совпадения: успех с корректирующей подсказкой
		return ApplyResult{
			Status:       StatusSuccess,
			Replacements: 0,
			Message:      "no occurrences found",
			Hint:         ZeroMatchHint,
		}
	}

	// Применяем с конца, чтобы более ранние смещения оставались валидными
	for i := len(spans) - 1; i >= 0; i-- {
		if err := e.applyToSpan(ctx, spans[i], req.Content); err != nil {
			e.resolver.Invalidate()
			return ApplyResult{Status: StatusError, Error: err.Error()}
		}
	}
	e.resolver.Invalidate()

	utils.Info("Patch applied",
		"target", req.Target,
		"replacements", len(spans),
		"diff", changeSummary(before, e.doc.PlainText()))

	return ApplyResult{
		Status:       StatusSuccess,
		Replacements: len(spans),
		Message:      fmt.Sprintf("applied %d replacement(s)", len(spans)),
	}
}

// resolveSpans превращает запрос в список диапазонов [start, end).
func (e *Engine) resolveSpans(req ApplyRequest) ([]Range, *ApplyResult) {
	fail := func(msg string) *ApplyResult {
		return &ApplyResult{Status: StatusError, Error: msg}
	}

	switch req.Target {
	case TargetFull, "":
		return []Range{{Start: 0, End: e.doc.Length()}}, nil

	case TargetRange:
		start, end := e.clamp(req.Start, req.End)
		if start > end {
			return nil, fail(fmt.Sprintf("invalid range [%d,%d)", req.Start, req.End))
		}
		return []Range{{Start: start, End: end}}, nil

	case TargetBeginning:
		return []Range{{Start: 0, End: 0}}, nil

	case TargetEnd:
		return []Range{{Start: e.doc.Length(), End: e.doc.Length()}}, nil

	case TargetSelection:
		if !e.hasSelection {
			return nil, fail("no selection")
		}
		return []Range{{Start: e.selStart, End: e.selEnd}}, nil

	case TargetSearch:
		if req.Search == "" {
			return nil, fail("search string is required for target=search")
		}
		_, matches := e.resolver.Resolve(req.Search, req.CaseSensitive)
		if len(matches) == 0 {
			return nil, nil
		}
		if req.Occurrence == OccurrenceAll {
			return matches, nil
		}
		return matches[:1], nil

	default:
		return nil, fail(fmt.Sprintf("unknown target: %s", req.Target))
	}
}

// applyToSpan применяет контент к одному диапазону.
func (e *Engine) applyToSpan(ctx context.Context, span Range, content string) error {
	if HasMarkup(content) {
		// Разметка: рендер во фрагмент, затем вставка целиком.
		// Базовый стиль фрагмента наследуется от начала диапазона.
		var base document.StyleRun
		if span.Start < e.doc.Length() {
			base = e.doc.StyleAt(span.Start)
		} else if span.Start > 0 {
			base = e.doc.StyleAt(span.Start - 1)
		}

		frag := document.ParseMarkdown(content, base)
		if err := e.doc.DeleteRange(span.Start, span.End); err != nil {
			return err
		}
		if td, ok := e.doc.(*document.TextDocument); ok {
			return td.InsertFragment(span.Start, frag)
		}
		// Реализация без поддержки фрагментов: вставляем plain текст
		return e.doc.InsertAt(span.Start, frag.PlainText(), base)
	}

	// Plain: посимвольный diff с сохранением форматирования
	_, err := applyTextDiff(ctx, e.doc, span.Start, span.End, content, e.diffOpts)
	return err
}
