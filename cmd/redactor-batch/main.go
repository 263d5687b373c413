// Redactor AI Batch Mode
// Однопроходное выполнение задачи редактирования без TUI:
// открыть документ, выполнить задачу, сохранить результат.
//
// Использование:
//
//	redactor-batch -doc draft.md -task "исправь опечатки" -out edited.md
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ilkoid/redactor-ai/pkg/app"
	"github.com/ilkoid/redactor-ai/pkg/events"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "путь к config.yaml")
	docPath := flag.String("doc", "", "входной документ")
	outPath := flag.String("out", "", "куда сохранить результат (по умолчанию перезаписывает -doc)")
	task := flag.String("task", "", "задача для редактора")
	flag.Parse()

	if *task == "" {
		return fmt.Errorf("флаг -task обязателен")
	}

	cfg, cfgPath, err := app.InitializeConfig(
		&app.DefaultConfigPathFinder{ExplicitPath: *configPath},
	)
	if err != nil {
		return err
	}

	components, err := app.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer components.Close()

	utils.Info("Batch mode started", "config", cfgPath, "doc", *docPath)

	// Ctrl+C прерывает агента, частичный результат не сохраняется
	ctx, shutdown := utils.ShutdownContext(context.Background())
	defer shutdown()

	if *docPath != "" {
		if err := components.OpenDocument(ctx, *docPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Открыт %s (%d символов)\n", *docPath, components.Document.Length())
	}

	// Прогресс в stderr, чтобы stdout оставался чистым для ответа
	sub := components.Emitter.Subscribe()
	go printProgress(sub)

	// Вся задача — одна серия правок: кеш документа инвалидируется
	// один раз по завершении, а не перед каждым инструментом
	components.SetBatchEditing(true)
	result, err := components.Orchestrator.ProcessMessage(ctx, *task)
	components.SetBatchEditing(false)
	if err != nil {
		return fmt.Errorf("task failed: %w", err)
	}

	fmt.Println(strings.TrimSpace(result))

	savePath := *outPath
	if savePath == "" {
		savePath = *docPath
	}
	if savePath != "" {
		if err := components.SaveDocument(savePath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Сохранено: %s\n", savePath)
	}

	return nil
}

// printProgress печатает активность агента в stderr.
func printProgress(sub events.Subscriber) {
	for event := range sub.Events() {
		switch event.Type {
		case events.EventToolCall:
			data := event.Data.(events.ToolCallData)
			fmt.Fprintf(os.Stderr, "[tool] %s\n", data.ToolName)
		case events.EventToolResult:
			data := event.Data.(events.ToolResultData)
			fmt.Fprintf(os.Stderr, "[tool] %s done (%.1fs)\n", data.ToolName, data.Duration.Seconds())
		case events.EventError:
			data := event.Data.(events.ErrorData)
			fmt.Fprintf(os.Stderr, "[error] %v\n", data.Err)
		}
	}
}
