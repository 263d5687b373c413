// Константы зарезервированных ключей унифицированного хранилища.
//
// Зарезервированные ключи соответствуют типизированным полям CoreState:
// запись по ним через Set() запрещена, есть типизированные методы.
package state

// Зарезервированные ключи CoreState.
const (
	// KeyHistory — история диалога ([]llm.Message).
	// Доступ через AppendMessage/GetHistory/ClearHistory.
	KeyHistory = "history"

	// KeySession — идентификатор сессии (string).
	// Доступ через SessionID/ResetSession.
	KeySession = "session"

	// KeyDocType — тип открытого документа (string).
	// Доступ через DocType/SetDocType.
	KeyDocType = "doc_type"

	// KeyStorage — клиент архива снапшотов (*s3storage.Client).
	// Доступ через GetS3.
	KeyStorage = "storage"

	// KeyToolsRegistry — реестр инструментов (*tools.Registry).
	// Доступ через GetToolsRegistry/SetToolsRegistry.
	KeyToolsRegistry = "tools_registry"
)

// ReservedKeys возвращает список зарезервированных ключей.
func ReservedKeys() []string {
	return []string{
		KeyHistory,
		KeySession,
		KeyDocType,
		KeyStorage,
		KeyToolsRegistry,
	}
}

// IsReservedKey проверяет что ключ является зарезервированным.
func IsReservedKey(key string) bool {
	for _, reserved := range ReservedKeys() {
		if key == reserved {
			return true
		}
	}
	return false
}
