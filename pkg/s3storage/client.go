// Package s3storage — архив снапшотов документа в S3-совместимом
// хранилище.
//
// Снапшот — это markdown экспорт документа на момент времени. Ключи
// устроены как "<session>/<timestamp>.md": префикс сессии позволяет
// перечислить историю одного диалога одним ListObjects.
package s3storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ilkoid/redactor-ai/pkg/config"
)

// ClientInterface — порт архива снапшотов.
// Используется для мокания в тестах и внедрения зависимостей.
type ClientInterface interface {
	UploadSnapshot(ctx context.Context, sessionID string, content []byte) (Snapshot, error)
	ListSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error)
	DownloadSnapshot(ctx context.Context, key string) ([]byte, error)
}

// Client — клиент архива снапшотов поверх minio.
type Client struct {
	api    *minio.Client
	bucket string

	// now подменяется в тестах
	now func() time.Time
}

// Проверка что Client реализует ClientInterface
var _ ClientInterface = (*Client)(nil)

// Snapshot — запись архива.
type Snapshot struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// New создает клиент, используя наш конфиг.
func New(cfg config.S3Config) (*Client, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:    minioClient,
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

// SnapshotKey строит ключ снапшота для сессии и момента времени.
func SnapshotKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("%s/%s.md", sessionID, at.UTC().Format("20060102T150405.000"))
}

// UploadSnapshot загружает markdown снапшот документа в архив.
//
// Rule 11: контекст пробрасывается в minio для отмены.
func (c *Client) UploadSnapshot(ctx context.Context, sessionID string, content []byte) (Snapshot, error) {
	if sessionID == "" {
		return Snapshot{}, fmt.Errorf("session id is required")
	}

	key := SnapshotKey(sessionID, c.now())
	_, err := c.api.PutObject(ctx, c.bucket, key,
		bytes.NewReader(content), int64(len(content)),
		minio.PutObjectOptions{ContentType: "text/markdown"})
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to upload snapshot %s: %w", key, err)
	}

	return Snapshot{
		Key:          key,
		Size:         int64(len(content)),
		LastModified: c.now(),
	}, nil
}

// ListSnapshots возвращает снапшоты сессии, отсортированные по ключу
// (ключ содержит timestamp, порядок совпадает с хронологическим).
func (c *Client) ListSnapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	prefix := sessionID
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var snapshots []Snapshot
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}

	for obj := range c.api.ListObjects(ctx, c.bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		// Пропускаем саму "папку"
		if obj.Key == prefix {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Key < snapshots[j].Key
	})

	return snapshots, nil
}

// DownloadSnapshot скачивает снапшот целиком в память.
func (c *Client) DownloadSnapshot(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.api.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, obj); err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}

	return buf.Bytes(), nil
}
