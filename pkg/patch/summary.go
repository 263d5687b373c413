// Компактная сводка изменений для лога.
package patch

import (
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// changeSummary возвращает краткую сводку различий вида "+12 -5 (3 hunks)".
//
// Используется только для логирования после применения правки;
// сам diff правки выполняется позиционно в diff.go.
func changeSummary(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	inserted, deleted, hunks := 0, 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len([]rune(d.Text))
			hunks++
		case diffmatchpatch.DiffDelete:
			deleted += len([]rune(d.Text))
			hunks++
		}
	}

	if hunks == 0 {
		return "no changes"
	}
	return fmt.Sprintf("+%d -%d (%d hunks)", inserted, deleted, hunks)
}
