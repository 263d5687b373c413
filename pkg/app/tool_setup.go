// Регистрация инструментов редактора из конфигурации.

package app

import (
	"fmt"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/models"
	"github.com/ilkoid/redactor-ai/pkg/patch"
	"github.com/ilkoid/redactor-ai/pkg/questions"
	"github.com/ilkoid/redactor-ai/pkg/state"
	"github.com/ilkoid/redactor-ai/pkg/tools"
	"github.com/ilkoid/redactor-ai/pkg/tools/std"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

// SetupTools создаёт реестр и регистрирует инструменты редактора.
//
// Состав:
//   - get_document_content, apply_document_content, find_text — ядро
//   - ask_user_question — уточняющие вопросы пользователю
//   - ping_llm_provider — диагностика провайдера (extended)
//   - save_document_snapshot, list_document_snapshots — если настроен S3
//
// Инструмент можно отключить через config.yaml:
//
//	tools:
//	  ping_llm_provider:
//	    enabled: false
//
// Отсутствие инструмента в секции tools означает "включён".
//
// Rule 3: все инструменты проходят через Registry.
func SetupTools(
	cfg *config.AppConfig,
	engine *patch.Engine,
	coreState *state.CoreState,
	modelRegistry *models.Registry,
	questionManager *questions.QuestionManager,
) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	// Mutating инструменты делают кешированный plain текст устаревшим
	registry.SetCacheInvalidator(engine.InvalidateCache)

	register := func(name string, tool tools.Tool) error {
		if !toolEnabled(cfg, name) {
			utils.Info("Tool disabled by config", "name", name)
			return nil
		}
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to register tool %s: %w", name, err)
		}
		return nil
	}

	// Ядро: чтение, правка, поиск
	if err := register("get_document_content", std.NewReadDocumentTool(engine)); err != nil {
		return nil, err
	}
	if err := register("apply_document_content", std.NewApplyDocumentTool(engine)); err != nil {
		return nil, err
	}
	if err := register("find_text", std.NewFindTextTool(engine)); err != nil {
		return nil, err
	}

	// Уточняющие вопросы
	if err := register("ask_user_question",
		std.NewAskUserQuestionTool(questionManager, toolConfig(cfg, "ask_user_question"))); err != nil {
		return nil, err
	}

	// Диагностика провайдера
	if err := register("ping_llm_provider",
		std.NewLLMPingTool(modelRegistry, cfg, toolConfig(cfg, "ping_llm_provider"))); err != nil {
		return nil, err
	}

	// Архив снапшотов — только при настроенном S3
	if s3 := coreState.GetS3(); s3 != nil {
		sessionID := coreState.SessionID()
		if err := register("save_document_snapshot",
			std.NewSaveSnapshotTool(engine, s3, sessionID)); err != nil {
			return nil, err
		}
		if err := register("list_document_snapshots",
			std.NewListSnapshotsTool(s3, sessionID)); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// toolEnabled проверяет включён ли инструмент в конфигурации.
// Отсутствие записи означает "включён".
func toolEnabled(cfg *config.AppConfig, name string) bool {
	tc, ok := cfg.Tools[name]
	if !ok {
		return true
	}
	return tc.Enabled
}

// toolConfig возвращает конфигурацию инструмента (или пустую).
func toolConfig(cfg *config.AppConfig, name string) config.ToolConfig {
	return cfg.Tools[name]
}
