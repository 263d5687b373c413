// Package models — реестр чат-моделей редактора.
//
// config.yaml описывает модели под алиасами (models.definitions);
// реестр создаёт провайдер для каждого алиаса при старте и отдаёт
// его по имени: инициализация берёт активную модель через
// GetWithFallback с дефолтным алиасом, ping_llm_provider — через Get.
//
// Rule 4: наружу уходит только llm.Provider интерфейс.
// Rule 5: thread-safe.
package models

import (
	"fmt"
	"sync"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/llm/openai"
)

// Registry хранит провайдеры, созданные из конфигурации.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	provider llm.Provider
	def      config.ModelDef
}

// newProvider создаёт провайдер для определения модели.
//
// Все поддерживаемые провайдеры говорят на OpenAI-совместимом
// chat completions API и различаются только base URL и ключом.
func newProvider(def config.ModelDef) (llm.Provider, error) {
	switch def.Provider {
	case "zai", "openai", "deepseek":
		return openai.NewClient(def), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %s", def.Provider)
	}
}

// NewRegistryFromConfig создаёт реестр из cfg.Models.Definitions.
//
// Ошибка любого определения валит инициализацию целиком: лучше не
// стартовать, чем упасть на переключении модели посреди сессии.
//
// Rule 7: ошибки возвращаются, никаких panic.
func NewRegistryFromConfig(cfg *config.AppConfig) (*Registry, error) {
	r := &Registry{entries: make(map[string]entry, len(cfg.Models.Definitions))}

	for alias, def := range cfg.Models.Definitions {
		provider, err := newProvider(def)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider for model '%s': %w", alias, err)
		}
		r.entries[alias] = entry{provider: provider, def: def}
	}

	return r, nil
}

// Get возвращает провайдер и определение модели по алиасу.
func (r *Registry) Get(alias string) (llm.Provider, config.ModelDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[alias]
	if !ok {
		return nil, config.ModelDef{}, fmt.Errorf("model '%s' not found in registry", alias)
	}
	return e.provider, e.def, nil
}

// GetWithFallback возвращает запрошенную модель, а при её отсутствии —
// дефолтную. Четвёртым значением возвращается фактический алиас.
func (r *Registry) GetWithFallback(requested, defaultAlias string) (llm.Provider, config.ModelDef, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[requested]; ok {
		return e.provider, e.def, requested, nil
	}
	if e, ok := r.entries[defaultAlias]; ok {
		return e.provider, e.def, defaultAlias, nil
	}
	return nil, config.ModelDef{}, "", fmt.Errorf(
		"neither requested model '%s' nor default '%s' found in registry", requested, defaultAlias)
}

// ListNames возвращает алиасы всех зарегистрированных моделей.
func (r *Registry) ListNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for alias := range r.entries {
		names = append(names, alias)
	}
	return names
}
