// Реестр для хранения, фильтрации и диспетчеризации инструментов.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ilkoid/redactor-ai/pkg/llm"
	"github.com/ilkoid/redactor-ai/pkg/utils"
)

// Registry — потокобезопасное хранилище инструментов.
//
// Единая точка диспетчеризации: и чат-агент, и batch сценарии выполняют
// инструменты через ExecuteCall. Ошибки выполнения никогда не поднимаются
// наверх как Go ошибки — они упаковываются в структурный JSON результат,
// который уходит модели как сообщение роли tool.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string

	// invalidator вызывается перед выполнением mutating инструмента
	invalidator CacheInvalidator

	// batchMode подавляет per-tool инвалидацию кеша (серия правок подряд)
	batchMode bool
}

// NewRegistry создает новый пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// validateToolDefinition проверяет что ToolDefinition соответствует JSON Schema.
//
// Валидирует:
//   - Name не пустой
//   - Parameters является JSON объектом
//   - Parameters.type == "object"
//   - Parameters.required является массивом строк
func validateToolDefinition(def ToolDefinition) error {
	// 1. Проверяем имя
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	// 2. Проверяем что Parameters не nil
	if def.Parameters == nil {
		return fmt.Errorf("tool '%s': parameters cannot be nil", def.Name)
	}

	// 3. Сериализуем Parameters в JSON для проверки структуры
	paramsJSON, err := json.Marshal(def.Parameters)
	if err != nil {
		return fmt.Errorf("tool '%s': failed to marshal parameters: %w", def.Name, err)
	}

	// 4. Парсим как map[string]interface{}
	var params map[string]interface{}
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return fmt.Errorf("tool '%s': parameters must be a JSON object, got: %s", def.Name, string(paramsJSON))
	}

	// 5. Проверяем что type == "object"
	typeVal, ok := params["type"]
	if !ok {
		return fmt.Errorf("tool '%s': parameters must have 'type' field", def.Name)
	}

	typeStr, ok := typeVal.(string)
	if !ok {
		return fmt.Errorf("tool '%s': parameters.type must be a string, got: %T", def.Name, typeVal)
	}

	if typeStr != "object" {
		return fmt.Errorf("tool '%s': parameters.type must be 'object', got: '%s'", def.Name, typeStr)
	}

	// 6. Проверяем что 'required' (если есть) является массивом строк
	if requiredVal, exists := params["required"]; exists {
		required, ok := requiredVal.([]interface{})
		if !ok {
			return fmt.Errorf("tool '%s': parameters.required must be an array", def.Name)
		}

		for i, item := range required {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("tool '%s': parameters.required[%d] must be a string, got: %T", def.Name, i, item)
			}
		}
	}

	return nil
}

// Register добавляет инструмент в реестр с валидацией схемы.
//
// Повторная регистрация имени заменяет инструмент (с предупреждением в лог).
// Возвращает ошибку если определение инструмента не валидно.
func (r *Registry) Register(tool Tool) error {
	def := tool.Definition()

	// Валидируем определение перед регистрацией
	if err := validateToolDefinition(def); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[def.Name]; exists {
		utils.Warn("Tool already registered, replacing", "name", def.Name)
	} else {
		r.order = append(r.order, def.Name)
	}
	r.tools[def.Name] = tool
	return nil
}

// Get ищет инструмент по имени.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool '%s' not found", name)
	}
	return tool, nil
}

// Names возвращает имена всех инструментов в порядке регистрации.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len возвращает количество зарегистрированных инструментов.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// SetCacheInvalidator устанавливает колбэк инвалидации кеша документа.
//
// Thread-safe.
func (r *Registry) SetCacheInvalidator(fn CacheInvalidator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidator = fn
}

// SetBatchMode включает/выключает batch режим.
//
// В batch режиме per-tool инвалидация кеша подавляется: серия правок
// выполняется подряд, кеш инвалидируется один раз снаружи.
func (r *Registry) SetBatchMode(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchMode = on
}

// compatible проверяет совместимость инструмента с типом документа.
func compatible(def ToolDefinition, docType string) bool {
	if def.DocTypes == nil || docType == "" {
		return true
	}
	for _, dt := range def.DocTypes {
		if dt == docType {
			return true
		}
	}
	return false
}

// SchemasFor возвращает function calling схемы для отправки в LLM,
// отфильтрованные по типу документа и уровню.
//
// docType == "" означает любой документ, tier == "" — любой уровень.
// Порядок соответствует порядку регистрации.
func (r *Registry) SchemasFor(docType string, tier Tier) []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name].Definition()
		if !compatible(def, docType) {
			continue
		}
		if tier != "" && def.Tier != tier {
			continue
		}
		schemas = append(schemas, toSchema(def))
	}
	return schemas
}

// SchemasByNames возвращает схемы конкретных инструментов.
// Неизвестные имена молча пропускаются.
func (r *Registry) SchemasByNames(names []string) []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]llm.ToolSchema, 0, len(names))
	for _, name := range names {
		if tool, ok := r.tools[name]; ok {
			schemas = append(schemas, toSchema(tool.Definition()))
		}
	}
	return schemas
}

// summaryDescLimit — лимит описания в каталоге (в рунах).
const summaryDescLimit = 120

// Summaries возвращает облегчённый каталог инструментов
// (для prompt-подсказок и команды /tools в TUI).
func (r *Registry) Summaries(docType string, tier Tier) []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		def := r.tools[name].Definition()
		if !compatible(def, docType) {
			continue
		}
		if tier != "" && def.Tier != tier {
			continue
		}
		desc := def.Description
		if r := []rune(desc); len(r) > summaryDescLimit {
			desc = string(r[:summaryDescLimit])
		}
		result = append(result, Summary{
			Name:        def.Name,
			Description: desc,
			Tier:        def.Tier,
			Intent:      def.Intent,
		})
	}
	return result
}

// NamesByIntent возвращает имена extended и agent инструментов, чей
// intent нечётко совпадает с запросом (case-insensitive fuzzy match).
//
// Используется для точечного подключения верхних уровней к запросу
// пользователя без раздувания каждого запроса всеми схемами.
func (r *Registry) NamesByIntent(docType string, query string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for _, name := range r.order {
		def := r.tools[name].Definition()
		if def.Tier != TierExtended && def.Tier != TierAgent {
			continue
		}
		if def.Intent == "" {
			continue
		}
		if !compatible(def, docType) {
			continue
		}
		if fuzzy.MatchFold(def.Intent, query) {
			names = append(names, name)
		}
	}
	return names
}

// toSchema конвертирует ToolDefinition в транспортную схему для LLM.
func toSchema(def ToolDefinition) llm.ToolSchema {
	return llm.ToolSchema{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  map[string]interface{}(def.Parameters),
	}
}

// ExecuteCall выполняет вызов инструмента от имени модели.
//
// Любой сбой — неизвестный инструмент, несовместимый тип документа,
// битый JSON аргументов, ошибка или panic инструмента — превращается
// в структурный результат {"status":"error","error":...}. Go ошибка
// наружу не поднимается: цикл диалога продолжается, модель получает
// ошибку как результат и может скорректировать следующий вызов.
//
// Алгоритм:
//  1. Поиск инструмента и проверка совместимости с docType
//  2. Фильтрация аргументов по свойствам схемы (лишние ключи от модели
//     отбрасываются вместо ошибки валидации)
//  3. Проверка required полей
//  4. Инвалидация кеша документа для mutating инструментов (кроме batch)
//  5. Выполнение с перехватом panic
//
// Rule 11: ctx пробрасывается в инструмент для отмены.
func (r *Registry) ExecuteCall(ctx context.Context, name string, argsJSON string, docType string) string {
	r.mu.RLock()
	tool, ok := r.tools[name]
	invalidator := r.invalidator
	batch := r.batchMode
	r.mu.RUnlock()

	if !ok {
		return errorResult(fmt.Sprintf("unknown tool: %s", name))
	}

	def := tool.Definition()

	if !compatible(def, docType) {
		return errorResult(fmt.Sprintf("tool %s does not support doc_type=%s", name, docType))
	}

	filtered, err := filterArgs(def, argsJSON)
	if err != nil {
		return errorResult(err.Error())
	}

	if err := checkRequired(def, filtered); err != nil {
		return errorResult(err.Error())
	}

	// Mutating инструмент делает кешированное представление документа
	// устаревшим ещё до выполнения
	if def.Mutating && !batch && invalidator != nil {
		invalidator()
	}

	result, err := safeExecute(ctx, tool, filtered)
	if err != nil {
		utils.Error("Tool execution failed", "tool", name, "error", err)
		return errorResult(err.Error())
	}

	return result
}

// filterArgs ограничивает аргументы свойствами схемы инструмента.
//
// Модели иногда присылают лишние ключи (например, скопированные из
// другого инструмента) — отбрасываем их вместо жёсткой ошибки.
// Аргументы, обёрнутые в markdown кодовый блок, разворачиваются.
// Пустой argsJSON трактуется как "{}".
func filterArgs(def ToolDefinition, argsJSON string) (string, error) {
	argsJSON = utils.CleanJsonBlock(argsJSON)
	if argsJSON == "" {
		argsJSON = "{}"
	}

	props, _ := def.Parameters["properties"].(map[string]any)
	if len(props) == 0 {
		// Схема без свойств — передаём как есть
		return argsJSON, nil
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		// Модель могла прислать JSON вперемешку с текстом
		extracted := utils.ExtractJSON(argsJSON)
		if extracted == "" || json.Unmarshal([]byte(extracted), &args) != nil {
			return "", fmt.Errorf("invalid arguments JSON for tool %s: %v", def.Name, err)
		}
	}

	filtered := make(map[string]json.RawMessage, len(args))
	for k, v := range args {
		if _, declared := props[k]; declared {
			filtered[k] = v
		}
	}

	out, err := json.Marshal(filtered)
	if err != nil {
		return "", fmt.Errorf("failed to re-marshal arguments for tool %s: %v", def.Name, err)
	}
	return string(out), nil
}

// checkRequired проверяет наличие обязательных полей после фильтрации.
func checkRequired(def ToolDefinition, argsJSON string) error {
	required, _ := def.Parameters["required"].([]interface{})
	if len(required) == 0 {
		return nil
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return fmt.Errorf("invalid arguments JSON for tool %s: %v", def.Name, err)
	}

	for _, item := range required {
		key, _ := item.(string)
		if _, present := args[key]; !present {
			return fmt.Errorf("tool %s: missing required argument '%s'", def.Name, key)
		}
	}
	return nil
}

// safeExecute выполняет инструмент с перехватом panic.
//
// Rule 7: panic инструмента не валит процесс — конвертируется в ошибку.
func safeExecute(ctx context.Context, tool Tool, argsJSON string) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool panicked: %v", rec)
		}
	}()
	return tool.Execute(ctx, argsJSON)
}

// errorResult упаковывает ошибку в структурный JSON результат.
func errorResult(msg string) string {
	out, err := json.Marshal(map[string]string{
		"status": "error",
		"error":  msg,
	})
	if err != nil {
		// Marshal map[string]string не падает, но на всякий случай
		return `{"status":"error","error":"internal error"}`
	}
	return string(out)
}
