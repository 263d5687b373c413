// Package app предоставляет переиспользуемые компоненты для инициализации
// и выполнения AI-редактора в разных контекстах (TUI, CLI, batch).
//
// Пакет следует правилам из dev_manifest.md:
//   - Работает через llm.Provider интерфейс (Правило 4)
//   - Инструменты регистрируются в tools.Registry (Правило 3)
//   - Использует thread-safe CoreState (Правило 5)
//   - Все ошибки возвращаются, никаких panic (Правило 7)
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilkoid/redactor-ai/pkg/agent"
	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/document"
	"github.com/ilkoid/redactor-ai/pkg/events"
	"github.com/ilkoid/redactor-ai/pkg/history"
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/models"
	"github.com/ilkoid/redactor-ai/pkg/patch"
	"github.com/ilkoid/redactor-ai/pkg/prompt"
	"github.com/ilkoid/redactor-ai/pkg/questions"
	"github.com/ilkoid/redactor-ai/pkg/s3storage"
	"github.com/ilkoid/redactor-ai/pkg/state"
	"github.com/ilkoid/redactor-ai/pkg/tools"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

// Components содержит все компоненты приложения для переиспользования.
//
// Эта структура используется и TUI, и batch режимом, чтобы не дублировать
// код инициализации между интерфейсами.
type Components struct {
	Config *config.AppConfig

	// ModelRegistry — реестр LLM провайдеров из config.yaml
	ModelRegistry *models.Registry

	// Provider — активная чат-модель
	Provider  llm.Provider
	ModelName string

	// Document и Engine — открытый документ и движок правок
	Document *document.TextDocument
	Engine   *patch.Engine

	// Tools — реестр инструментов редактора
	Tools *tools.Registry

	// State — состояние сессии
	State *state.CoreState

	// Transcript — персистентная стенограмма (nil если выключена)
	Transcript *history.Store

	// QuestionManager — shared state для ask_user_question
	QuestionManager *questions.QuestionManager

	// Orchestrator — цикл диалога
	Orchestrator *agent.Orchestrator

	// Emitter — шина событий агента для UI
	Emitter *events.ChanEmitter
}

// ConfigPathFinder определяет стратегию поиска пути к config.yaml.
//
// По умолчанию используется DefaultConfigPathFinder, но можно
// реализовать свою стратегию для тестов или специальных случаев.
type ConfigPathFinder interface {
	FindConfigPath() string
}

// DefaultConfigPathFinder реализует стандартную стратегию поиска config.yaml.
//
// Порядок поиска:
// 1. Явный путь (если указан)
// 2. Переменная окружения REDACTOR_CONFIG
// 3. Текущая директория (./config.yaml)
// 4. Директория бинарника
type DefaultConfigPathFinder struct {
	ExplicitPath string
}

// FindConfigPath находит путь к config.yaml.
func (f *DefaultConfigPathFinder) FindConfigPath() string {
	if f.ExplicitPath != "" {
		return f.ExplicitPath
	}

	if env := os.Getenv("REDACTOR_CONFIG"); env != "" {
		return env
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "config.yaml"
}

// InitializeConfig инициализирует и загружает конфигурацию.
//
// Правило 2: все настройки в YAML с поддержкой ENV-переменных.
func InitializeConfig(finder ConfigPathFinder) (*config.AppConfig, string, error) {
	if finder == nil {
		finder = &DefaultConfigPathFinder{}
	}

	path := finder.FindConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return cfg, path, nil
}

// Initialize создаёт и инициализирует все компоненты приложения.
//
// Эта функция переиспользуемая: её вызывают и TUI, и batch режим.
// Вся логика инициализации инкапсулирована здесь.
//
// Порядок:
//  1. Логгер
//  2. Реестр моделей и активный провайдер
//  3. Пустой документ и движок правок
//  4. S3 архив снапшотов (если настроен)
//  5. Состояние сессии и реестр инструментов
//  6. Персистентная стенограмма (если включена)
//  7. Системный промпт и оркестратор
//
// Правило 6: entry points - initialization and orchestration only.
func Initialize(cfg *config.AppConfig) (*Components, error) {
	// 1. Логгер
	if err := utils.InitLogger(); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 2. Модели
	modelRegistry, err := models.NewRegistryFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init model registry: %w", err)
	}

	provider, _, modelName, err := modelRegistry.GetWithFallback("", cfg.Models.DefaultChat)
	if err != nil {
		return nil, fmt.Errorf("failed to select chat model: %w", err)
	}

	// 3. Документ и движок
	doc := document.New()
	engine := patch.NewEngine(doc, patch.Config{
		MaxReadChars: cfg.Document.MaxReadChars,
	})

	// 4. Архив снапшотов (опционально)
	var s3Client *s3storage.Client
	if cfg.HasS3() {
		s3Client, err = s3storage.New(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to init snapshot archive: %w", err)
		}
	}

	// 5. Состояние и инструменты
	coreState := state.NewCoreState(cfg, s3Client)

	questionManager := questions.NewQuestionManager(5, 5*time.Minute)

	registry, err := SetupTools(cfg, engine, coreState, modelRegistry, questionManager)
	if err != nil {
		return nil, fmt.Errorf("failed to setup tools: %w", err)
	}
	coreState.SetToolsRegistry(registry)

	// 6. Стенограмма (опционально)
	var transcript *history.Store
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = "redactor-history.db"
		}
		transcript, err = history.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
	}

	// 7. Промпт и оркестратор
	systemPrompt, err := prompt.LoadEditorSystemPrompt(cfg, prompt.ContextData{
		DocType:        coreState.DocType(),
		DocumentLength: doc.Length(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load system prompt: %w", err)
	}

	orchestrator, err := agent.New(agent.Config{
		Provider:     provider,
		Registry:     registry,
		State:        coreState,
		Transcript:   transcript,
		Agent:        cfg.Agent,
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	emitter := events.NewChanEmitter(cfg.Agent.GetDefaults().QueueSize)
	orchestrator.SetEmitter(emitter)

	utils.Info("Components initialized",
		"model", modelName,
		"tools", registry.Len(),
		"s3", cfg.HasS3(),
		"history", cfg.History.Enabled)

	return &Components{
		Config:          cfg,
		ModelRegistry:   modelRegistry,
		Provider:        provider,
		ModelName:       modelName,
		Document:        doc,
		Engine:          engine,
		Tools:           registry,
		State:           coreState,
		Transcript:      transcript,
		QuestionManager: questionManager,
		Orchestrator:    orchestrator,
		Emitter:         emitter,
	}, nil
}

// OpenDocument загружает файл в движок правок.
//
// Содержимое файла заменяет текущий документ целиком; markdown
// разметка парсится в стили, plain текст остаётся как есть.
func (c *Components) OpenDocument(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", path, err)
	}

	res := c.Engine.Apply(ctx, patch.ApplyRequest{
		Content: string(data),
		Target:  patch.TargetFull,
	})
	if res.Status != patch.StatusSuccess {
		return fmt.Errorf("failed to load document: %s", res.Error)
	}

	utils.Info("Document opened", "path", path, "length", c.Document.Length())
	return nil
}

// SaveDocument сериализует документ в markdown и пишет в файл.
func (c *Components) SaveDocument(path string) error {
	content := document.ExportMarkdown(c.Document, 0, c.Document.Length())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to save document %s: %w", path, err)
	}

	utils.Info("Document saved", "path", path, "length", c.Document.Length())
	return nil
}

// SetBatchEditing включает/выключает режим серии правок.
//
// В серии per-tool инвалидация кеша документа подавляется; при
// выключении кеш сбрасывается один раз, чтобы следующий поиск
// увидел итоговый текст.
func (c *Components) SetBatchEditing(on bool) {
	c.Tools.SetBatchMode(on)
	if !on {
		c.Engine.InvalidateCache()
	}
}

// Close освобождает ресурсы компонентов.
func (c *Components) Close() error {
	if c.Emitter != nil {
		c.Emitter.Close()
	}
	if c.Transcript != nil {
		return c.Transcript.Close()
	}
	return nil
}
