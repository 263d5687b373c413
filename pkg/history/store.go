// Package history — персистентное хранилище стенограмм диалогов.
//
// Каждое сообщение истории (включая tool calls и их результаты)
// пишется в sqlite по мере появления: при падении процесса стенограмма
// сессии не теряется. Чтение используется для восстановления сессии
// и для отладки.
//
// Rule 7: все ошибки возвращаются, никаких panic.
// Rule 11: все операции принимают context.Context.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ilkoid/redactor-ai/pkg/llm"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   TEXT NOT NULL,
	role         TEXT NOT NULL,
	content      TEXT NOT NULL DEFAULT '',
	reasoning    TEXT NOT NULL DEFAULT '',
	tool_calls   TEXT NOT NULL DEFAULT '',
	tool_call_id TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// Store — sqlite хранилище стенограмм.
//
// Thread-safe: database/sql сам сериализует доступ к соединению.
type Store struct {
	db *sql.DB
}

// SessionInfo — сводка по сессии для списка.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	Messages  int       `json:"messages"`
	StartedAt time.Time `json:"started_at"`
}

// Open открывает (и при необходимости создаёт) хранилище по пути.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close закрывает хранилище.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append дописывает сообщение в стенограмму сессии.
//
// ToolCalls сериализуются в JSON: структура сообщения восстанавливается
// при загрузке без потерь.
func (s *Store) Append(ctx context.Context, sessionID string, msg llm.Message) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	toolCalls := ""
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("failed to marshal tool calls: %w", err)
		}
		toolCalls = string(raw)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, reasoning, tool_calls, tool_call_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Content, msg.ReasoningContent, toolCalls, msg.ToolCallID)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// Load возвращает стенограмму сессии в порядке записи.
func (s *Store) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, reasoning, tool_calls, tool_call_id
		 FROM messages WHERE session_id = ? ORDER BY id`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var role, content, reasoning, toolCalls, toolCallID string
		if err := rows.Scan(&role, &content, &reasoning, &toolCalls, &toolCallID); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg := llm.Message{
			Role:             llm.Role(role),
			Content:          content,
			ReasoningContent: reasoning,
			ToolCallID:       toolCallID,
		}
		if toolCalls != "" {
			if err := json.Unmarshal([]byte(toolCalls), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Sessions возвращает сводки по всем сессиям, новые первыми.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, COUNT(*), MIN(created_at)
		 FROM messages GROUP BY session_id ORDER BY MIN(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.SessionID, &info.Messages, &info.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, info)
	}
	return sessions, rows.Err()
}

// DeleteSession удаляет стенограмму сессии.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}
