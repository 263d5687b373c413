// Базовые типы — универсальный язык общения с моделями.
package llm

// Role — роль участника диалога.
type Role string

// Константы ролей для удобства
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message — одно сообщение диалога.
//
// Универсальная структура для всех ролей:
//   - system/user: заполнен Content
//   - assistant: Content и/или ToolCalls (модель может запросить инструменты)
//   - tool: Content (результат) + ToolCallID (связь с запросом)
type Message struct {
	// Role — роль отправителя ("system", "user", "assistant", "tool")
	Role Role

	// Content — текстовое содержимое сообщения
	Content string

	// ReasoningContent — накопленный reasoning из thinking mode (если модель поддерживает)
	ReasoningContent string

	// ToolCalls — запросы на вызов инструментов (только для assistant)
	ToolCalls []ToolCall

	// ToolCallID — ID вызова, на который отвечает это сообщение (только для tool)
	ToolCallID string
}

// ToolCall — запрос модели на вызов инструмента.
//
// Args — сырая JSON строка аргументов как её отдала модель.
// Парсинг и валидация происходят на стороне инструмента (Raw In, String Out).
type ToolCall struct {
	ID   string
	Name string
	Args string
}

// ToolSchema — определение инструмента в формате function calling.
//
// Parameters — JSON Schema объект (map[string]interface{}),
// передаётся в API как есть.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}
