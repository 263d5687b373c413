// Завершение по сигналу.
//
// Batch прогон редактора обязан дописать лог и стенограмму при Ctrl+C:
// SIGINT/SIGTERM отменяют контекст задачи, агент и инструменты
// завершаются на ближайшем чекпоинте, cleanup закрывает логгер.
package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext возвращает контекст, который отменяется по
// SIGINT (Ctrl+C) или SIGTERM, и функцию очистки для defer.
//
// Очистка снимает обработчик сигналов и закрывает логгер, поэтому
// повторный Ctrl+C после неё убивает процесс штатно.
//
// Использование:
//
//	ctx, shutdown := utils.ShutdownContext(context.Background())
//	defer shutdown()
//
// Rule 11: отмена распространяется через context.Context.
func ShutdownContext(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			Info("Received signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			// Штатное завершение: горутина не переживает контекст
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
		Close()
	}
}
