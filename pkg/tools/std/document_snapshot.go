// Tools: save_document_snapshot, list_document_snapshots
//   - Архивирование markdown снапшотов документа в S3
//   - Снапшоты привязаны к сессии диалога
//   - Rule 1: Raw In, String Out
//   - Rule 11: context.Context propagation
package std

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/redactor-ai/pkg/patch"
	"github.com/ilkoid/redactor-ai/pkg/s3storage"
	"github.com/ilkoid/redactor-ai/pkg/tools"
)

// SaveSnapshotTool сохраняет снапшот документа в S3 архив.
type SaveSnapshotTool struct {
	engine    *patch.Engine
	archive   s3storage.ClientInterface
	sessionID string
}

// NewSaveSnapshotTool создаёт tool сохранения снапшота.
func NewSaveSnapshotTool(e *patch.Engine, archive s3storage.ClientInterface, sessionID string) *SaveSnapshotTool {
	return &SaveSnapshotTool{engine: e, archive: archive, sessionID: sessionID}
}

// Definition возвращает описание tool для LLM (Rule 1).
func (t *SaveSnapshotTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name: "save_document_snapshot",
		Description: "Сохраняет снапшот текущего документа в архив. " +
			"Используйте перед крупными правками, чтобы можно было вернуться.",
		Parameters: tools.JSONSchema{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		DocTypes: []string{"text"},
		Tier:     tools.TierAgent,
		Intent:   "save document snapshot backup",
	}
}

// Execute сохраняет снапшот (Rule 1: Raw In, String Out).
func (t *SaveSnapshotTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	// MaxChars < 0 отключает усечение: снапшот всегда полный
	res := t.engine.Read(patch.ReadRequest{Scope: patch.ScopeFull, MaxChars: -1})
	if res.Status != patch.StatusSuccess {
		return "", fmt.Errorf("failed to export document: %s", res.Error)
	}

	snap, err := t.archive.UploadSnapshot(ctx, t.sessionID, []byte(res.Content))
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	jsonResult, err := json.Marshal(map[string]interface{}{
		"status": "success",
		"key":    snap.Key,
		"size":   snap.Size,
	})
	if err != nil {
		return "", err
	}
	return string(jsonResult), nil
}

// ListSnapshotsTool перечисляет снапшоты текущей сессии.
type ListSnapshotsTool struct {
	archive   s3storage.ClientInterface
	sessionID string
}

// NewListSnapshotsTool создаёт tool списка снапшотов.
func NewListSnapshotsTool(archive s3storage.ClientInterface, sessionID string) *ListSnapshotsTool {
	return &ListSnapshotsTool{archive: archive, sessionID: sessionID}
}

// Definition возвращает описание tool для LLM (Rule 1).
func (t *ListSnapshotsTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        "list_document_snapshots",
		Description: "Возвращает список сохранённых снапшотов документа текущей сессии.",
		Parameters: tools.JSONSchema{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		DocTypes: []string{"text"},
		Tier:     tools.TierAgent,
		Intent:   "list document snapshots history",
	}
}

// Execute перечисляет снапшоты (Rule 1: Raw In, String Out).
func (t *ListSnapshotsTool) Execute(ctx context.Context, argsJSON string) (string, error) {
	snapshots, err := t.archive.ListSnapshots(ctx, t.sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to list snapshots: %w", err)
	}
	if snapshots == nil {
		snapshots = []s3storage.Snapshot{}
	}

	jsonResult, err := json.Marshal(map[string]interface{}{
		"status":    "success",
		"count":     len(snapshots),
		"snapshots": snapshots,
	})
	if err != nil {
		return "", err
	}
	return string(jsonResult), nil
}
