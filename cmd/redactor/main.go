// Redactor AI TUI Application
// Интерактивный AI-редактор документов (markdown и plain текст)
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/redactor-ai/internal/app"
	"github.com/ilkoid/redactor-ai/internal/ui"
	appcomponents "github.com/ilkoid/redactor-ai/pkg/app"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "путь к config.yaml (по умолчанию ищется автоматически)")
	docPath := flag.String("doc", "", "файл для открытия при старте")
	flag.Parse()

	// 1. Конфигурация
	cfg, cfgPath, err := appcomponents.InitializeConfig(
		&appcomponents.DefaultConfigPathFinder{ExplicitPath: *configPath},
	)
	if err != nil {
		return err
	}
	log.Printf("Config loaded from %s", cfgPath)

	// 2. Компоненты (логгер, модели, документ, инструменты, оркестратор)
	components, err := appcomponents.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer components.Close()
	defer utils.Close()

	utils.Info("Redactor started",
		"config", cfgPath,
		"model", components.ModelName)

	// 3. Состояние приложения и команды
	editorState := app.NewEditorState(components)

	// 4. Открываем документ из флага (опционально)
	if *docPath != "" {
		cmd := editorState.CommandRegistry.Execute("open "+*docPath, editorState)
		if cmd != nil {
			if msg, ok := cmd().(app.CommandResultMsg); ok && msg.Err != nil {
				return msg.Err
			}
		}
	}

	// 5. TUI
	tuiModel := ui.InitialModel(editorState, components.Emitter.Subscribe())

	p := tea.NewProgram(
		tuiModel,
		// Без AltScreen - позволяет выделять текст мышкой и копировать в буфер обмена
	)

	if _, err := p.Run(); err != nil {
		utils.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	utils.Info("Application exited normally")
	return nil
}
