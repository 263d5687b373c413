package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig — корневая структура конфигурации.
// Она зеркалит структуру config.yaml.
type AppConfig struct {
	Models   ModelsConfig          `yaml:"models"`
	Tools    map[string]ToolConfig `yaml:"tools"`
	Agent    AgentConfig           `yaml:"agent"`
	Document DocumentConfig        `yaml:"document"`
	History  HistoryConfig         `yaml:"history"`
	S3       S3Config              `yaml:"s3"`
	App      AppSpecific           `yaml:"app"`
}

// ModelsConfig — настройки AI моделей.
type ModelsConfig struct {
	DefaultChat string              `yaml:"default_chat"` // Алиас чат-модели по умолчанию
	Definitions map[string]ModelDef `yaml:"definitions"`  // Словарь определений моделей
}

// ModelDef — параметры конкретной модели.
type ModelDef struct {
	Provider    string        `yaml:"provider"`   // "openai", "zai", "deepseek" и т.д.
	ModelName   string        `yaml:"model_name"` // Реальное имя в API
	APIKey      string        `yaml:"api_key"`    // Поддерживает ${VAR}
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"` // Go умеет парсить строки вида "60s", "1m"
	RPS         float64       `yaml:"rps"`     // Лимит запросов в секунду (0 = без лимита)
}

// ToolConfig — настройки инструментов.
type ToolConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Description string        `yaml:"description"` // Override описания для LLM
	Timeout     time.Duration `yaml:"timeout"`
}

// AgentConfig — настройки цикла диалога с инструментами.
type AgentConfig struct {
	// MaxToolRounds — максимум раундов с инструментами за один запрос.
	// После исчерпания выполняется финальный стрим без tools.
	MaxToolRounds int `yaml:"max_tool_rounds"`

	// QueueSize — ёмкость канала между воркерами и координатором.
	QueueSize int `yaml:"queue_size"`

	// ToolTimeout — таймаут выполнения одного инструмента.
	ToolTimeout time.Duration `yaml:"tool_timeout"`

	// YieldInterval — период кооперативного yield координатора (для UI).
	YieldInterval time.Duration `yaml:"yield_interval"`

	// AsyncTools — имена инструментов, выполняемых на воркер-горутинах.
	AsyncTools []string `yaml:"async_tools"`

	// Streaming — включён ли потоковый режим ответов.
	Streaming bool `yaml:"streaming"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *AgentConfig) GetDefaults() AgentConfig {
	result := *c

	if result.MaxToolRounds == 0 {
		result.MaxToolRounds = 6
	}
	if result.QueueSize == 0 {
		result.QueueSize = 256
	}
	if result.ToolTimeout == 0 {
		result.ToolTimeout = 2 * time.Minute
	}
	if result.YieldInterval == 0 {
		result.YieldInterval = 100 * time.Millisecond
	}

	return result
}

// DocumentConfig — настройки работы с документом.
type DocumentConfig struct {
	// Format — формат разметки для обмена с моделью ("markdown").
	Format string `yaml:"format"`

	// MaxReadChars — лимит символов при чтении документа (0 = без лимита).
	MaxReadChars int `yaml:"max_read_chars"`
}

// GetDefaults возвращает дефолтные значения для незаполненных полей.
func (c *DocumentConfig) GetDefaults() DocumentConfig {
	result := *c
	if result.Format == "" {
		result.Format = "markdown"
	}
	if result.MaxReadChars == 0 {
		result.MaxReadChars = 20000
	}
	return result
}

// HistoryConfig — настройки хранилища истории диалогов.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // Путь к sqlite файлу
}

// S3Config — настройки объектного хранилища для архива снапшотов.
// Секция опциональна: без endpoint архив отключён.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"` // Поддерживает ${VAR}
	SecretKey string `yaml:"secret_key"` // Поддерживает ${VAR}
	UseSSL    bool   `yaml:"use_ssl"`
}

// AppSpecific — общие настройки приложения.
type AppSpecific struct {
	Debug      bool   `yaml:"debug"`
	PromptsDir string `yaml:"prompts_dir"`
	LogsDir    string `yaml:"logs_dir"`
}

// Load читает YAML файл, подставляет ENV переменные и возвращает готовую структуру.
func Load(path string) (*AppConfig, error) {
	// 1. Проверяем существование файла
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found at: %s", path)
	}

	// 2. Читаем файл целиком
	rawBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 3. Подставляем переменные окружения.
	// os.ExpandEnv заменяет ${VAR} или $VAR на значение из системы.
	contentWithEnv := os.ExpandEnv(string(rawBytes))

	// 4. Парсим YAML в структуру
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(contentWithEnv), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	// 5. Применяем дефолты и валидируем критические настройки
	cfg.Agent = *applyDefaults(&cfg.Agent)
	cfg.Document = *applyDocumentDefaults(&cfg.Document)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(c *AgentConfig) *AgentConfig {
	d := c.GetDefaults()
	return &d
}

func applyDocumentDefaults(c *DocumentConfig) *DocumentConfig {
	d := c.GetDefaults()
	return &d
}

// validate проверяет обязательные поля.
func (c *AppConfig) validate() error {
	if len(c.Models.Definitions) == 0 {
		return fmt.Errorf("models.definitions is required")
	}
	if c.Models.DefaultChat != "" {
		if _, ok := c.Models.Definitions[c.Models.DefaultChat]; !ok {
			return fmt.Errorf("default_chat model '%s' is not defined in definitions", c.Models.DefaultChat)
		}
	}
	// S3 опционален, но если задан endpoint — bucket обязателен
	if c.S3.Endpoint != "" && c.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when s3.endpoint is set")
	}
	return nil
}

// Helper методы для удобства доступа (Syntactic sugar)

// GetChatModel возвращает конфигурацию модели по умолчанию или по имени.
func (c *AppConfig) GetChatModel(name string) (ModelDef, bool) {
	if name == "" {
		name = c.Models.DefaultChat
	}
	m, ok := c.Models.Definitions[name]
	return m, ok
}

// HasS3 проверяет, настроен ли архив снапшотов.
func (c *AppConfig) HasS3() bool {
	return c.S3.Endpoint != ""
}

// IsAsyncTool проверяет, назначен ли инструмент на воркер-горутину.
func (c *AgentConfig) IsAsyncTool(name string) bool {
	for _, n := range c.AsyncTools {
		if n == name {
			return true
		}
	}
	return false
}
