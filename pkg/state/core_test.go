package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilkoid/redactor-ai/pkg/config"
	"github.com/ilkoid/redactor-ai/pkg/llm"
)

func newTestState() *CoreState {
	return NewCoreState(&config.AppConfig{}, nil)
}

func TestNewCoreStateDefaults(t *testing.T) {
	s := newTestState()

	assert.NotEmpty(t, s.SessionID())
	assert.Equal(t, "text", s.DocType())
	assert.Empty(t, s.GetHistory())
	assert.Nil(t, s.GetS3())
}

func TestResetSessionChangesIDAndClearsHistory(t *testing.T) {
	s := newTestState()
	oldID := s.SessionID()

	s.AppendMessage(llm.Message{Role: llm.RoleUser, Content: "привет"})
	require.Len(t, s.GetHistory(), 1)

	newID := s.ResetSession()

	assert.NotEqual(t, oldID, newID)
	assert.Equal(t, newID, s.SessionID())
	assert.Empty(t, s.GetHistory())
}

func TestGetHistoryReturnsCopy(t *testing.T) {
	s := newTestState()
	s.AppendMessage(llm.Message{Role: llm.RoleUser, Content: "оригинал"})

	hist := s.GetHistory()
	hist[0].Content = "изменено"

	assert.Equal(t, "оригинал", s.GetHistory()[0].Content)
}

func TestBuildConversation(t *testing.T) {
	s := newTestState()
	s.AppendMessage(llm.Message{Role: llm.RoleUser, Content: "вопрос"})
	s.AppendMessage(llm.Message{Role: llm.RoleAssistant, Content: "ответ"})

	messages := s.BuildConversation("системный промпт")

	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "системный промпт", messages[0].Content)
	assert.Equal(t, "вопрос", messages[1].Content)
	assert.Equal(t, "ответ", messages[2].Content)
}

func TestBuildConversationWithoutSystemPrompt(t *testing.T) {
	s := newTestState()
	s.AppendMessage(llm.Message{Role: llm.RoleUser, Content: "вопрос"})

	messages := s.BuildConversation("")

	require.Len(t, messages, 1)
	assert.Equal(t, llm.RoleUser, messages[0].Role)
}

func TestUnifiedStoreCRUD(t *testing.T) {
	s := newTestState()

	require.NoError(t, s.Set("draft_title", "Черновик"))
	val, ok := s.Get("draft_title")
	require.True(t, ok)
	assert.Equal(t, "Черновик", val)

	assert.True(t, s.Exists("draft_title"))
	assert.Contains(t, s.List(), "draft_title")

	require.NoError(t, s.Delete("draft_title"))
	assert.False(t, s.Exists("draft_title"))

	err := s.Delete("draft_title")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestUnifiedStoreReservedKeys(t *testing.T) {
	s := newTestState()

	for _, key := range ReservedKeys() {
		err := s.Set(key, "value")
		assert.ErrorIs(t, err, ErrKeyReserved, "key %q", key)
	}
}

func TestUnifiedStoreUpdate(t *testing.T) {
	s := newTestState()

	// Инкремент несуществующего ключа: fn получает nil
	err := s.Update("edits_count", func(cur any) any {
		if cur == nil {
			return 1
		}
		return cur.(int) + 1
	})
	require.NoError(t, err)

	val, _ := s.Get("edits_count")
	assert.Equal(t, 1, val)

	// nil от fn удаляет ключ
	require.NoError(t, s.Update("edits_count", func(any) any { return nil }))
	assert.False(t, s.Exists("edits_count"))
}

func TestSetDocType(t *testing.T) {
	s := newTestState()
	s.SetDocType("markdown")
	assert.Equal(t, "markdown", s.DocType())
}
