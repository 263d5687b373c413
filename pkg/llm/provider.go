// Интерфейс Провайдера через который работает всё приложение.

package llm

import "context"

// Provider — контракт для любого AI-сервиса.
//
// Rule 4: приложение работает только через этот интерфейс,
// конкретные реализации (OpenAI-совместимые API) скрыты за ним.
type Provider interface {
	// Generate отправляет историю сообщений и возвращает ответ модели.
	//
	// schemas — опциональные определения инструментов для Function Calling.
	// Если schemas пуст, модель отвечает обычным текстом.
	Generate(ctx context.Context, messages []Message, schemas []ToolSchema, opts ...GenerateOption) (Message, error)
}
