// Посимвольный diff с сохранением форматирования.
package patch

import (
	"context"

	"github.com/ilkoid/redactor-ai/pkg/document"
)

// DefaultYieldEvery — период кооперативного yield (в символах).
const DefaultYieldEvery = 500

// DiffOptions — параметры применения diff.
type DiffOptions struct {
	// YieldEvery — раз в сколько символов вызывать Yield и проверять отмену.
	// 0 означает DefaultYieldEvery.
	YieldEvery int

	// Yield вызывается периодически во время длинных правок
	// (хост может прокачать UI). Может быть nil.
	Yield func()

	// Cancelled — флаг отмены пользователем. Может быть nil.
	Cancelled func() bool
}

// applyTextDiff заменяет диапазон [start, end) документа на newText,
// сохраняя форматирование позиционно.
//
// Алгоритм (один проходной курсор, O(L)):
//  1. Перекрывающиеся позиции: руна заменяется на месте, StyleRun позиции
//     сохраняется — замещающий символ наследует полный стиль старого
//     целиком, без перечисления атрибутов. Совпадающие руны не трогаются.
//  2. Лишние новые символы вставляются после последнего перекрытия и
//     наследуют стиль последнего перекрывшегося символа.
//  3. Оставшийся хвост старого диапазона удаляется.
//
// Инварианты: len(doc') == len(doc) - (end-start) + len(newText);
// стиль позиции i < min(L, N) не меняется.
//
// Каждые YieldEvery символов проверяются ctx и флаг отмены.
// При отмене правка прерывается на текущей позиции (частичное
// применение допустимо — пользователь явно прервал операцию).
func applyTextDiff(ctx context.Context, doc document.Document, start, end int, newText string, opts DiffOptions) (int, error) {
	yieldEvery := opts.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = DefaultYieldEvery
	}

	checkpoint := func(processed int) error {
		if processed%yieldEvery != 0 || processed == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.Cancelled != nil && opts.Cancelled() {
			return context.Canceled
		}
		if opts.Yield != nil {
			opts.Yield()
		}
		return nil
	}

	newRunes := []rune(newText)
	oldLen := end - start
	overlap := oldLen
	if len(newRunes) < overlap {
		overlap = len(newRunes)
	}

	// 1. Перекрытие: замена на месте с сохранением стиля позиции
	for i := 0; i < overlap; i++ {
		if doc.RuneAt(start+i) != newRunes[i] {
			if err := doc.ReplaceAt(start+i, newRunes[i]); err != nil {
				return 0, err
			}
		}
		if err := checkpoint(i + 1); err != nil {
			return start + i + 1, err
		}
	}

	// 2. Лишние новые символы наследуют стиль последнего перекрытия
	if len(newRunes) > oldLen {
		var inherit document.StyleRun
		if overlap > 0 {
			inherit = doc.StyleAt(start + overlap - 1)
		} else if start > 0 {
			inherit = doc.StyleAt(start - 1)
		}
		if err := doc.InsertAt(start+overlap, string(newRunes[overlap:]), inherit); err != nil {
			return 0, err
		}
	}

	// 3. Хвост старого диапазона удаляется
	if oldLen > len(newRunes) {
		if err := doc.DeleteRange(start+len(newRunes), end); err != nil {
			return 0, err
		}
	}

	return start + len(newRunes), nil
}
