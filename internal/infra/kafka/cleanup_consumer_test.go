package kafka

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docmesh/docman-service/internal/core/domain"
)

type fakeFileStore struct {
	deleted []string
}

func (s *fakeFileStore) Put(context.Context, string, io.Reader, int64) error { return nil }

func (s *fakeFileStore) Get(context.Context, string) (io.ReadCloser, error) { return nil, nil }

func (s *fakeFileStore) Delete(_ context.Context, fileID string) error {
	s.deleted = append(s.deleted, fileID)
	return nil
}

func TestFileCleanupConsumerHandleEvent(t *testing.T) {
	store := &fakeFileStore{}
	consumer := NewFileCleanupConsumer(store, zap.NewNop())

	err := consumer.HandleEvent(context.Background(), domain.FileDeletedEvent{
		EventID: "evt-1",
		FileID:  "file-1",
		UserID:  "user-1",
		Size:    1024,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"file-1"}, store.deleted)

	// Replayed events hit the store again; the store contract makes the
	// second delete a no-op.
	err = consumer.HandleEvent(context.Background(), domain.FileDeletedEvent{
		EventID: "evt-1",
		FileID:  "file-1",
		UserID:  "user-1",
		Size:    1024,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"file-1", "file-1"}, store.deleted)
}

func TestFileCleanupConsumerHandleEventMissingID(t *testing.T) {
	consumer := NewFileCleanupConsumer(&fakeFileStore{}, zap.NewNop())

	err := consumer.HandleEvent(context.Background(), domain.FileDeletedEvent{EventID: "evt-1"})
	assert.Error(t, err)
}

func TestFileCleanupConsumerHandleMessage(t *testing.T) {
	store := &fakeFileStore{}
	consumer := NewFileCleanupConsumer(store, zap.NewNop())

	value, err := json.Marshal(map[string]any{
		"event_id":   "evt-2",
		"event_type": domain.EventTypeFileDeleted,
		"payload": map[string]any{
			"file_id": "file-2",
			"user_id": "user-1",
			"size":    2048,
		},
	})
	require.NoError(t, err)

	err = consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: value})
	require.NoError(t, err)
	assert.Equal(t, []string{"file-2"}, store.deleted)
}

func TestFileCleanupConsumerIgnoresOtherEventTypes(t *testing.T) {
	store := &fakeFileStore{}
	consumer := NewFileCleanupConsumer(store, zap.NewNop())

	value, err := json.Marshal(map[string]any{
		"event_id":   "evt-3",
		"event_type": domain.EventTypeDocumentDeleted,
		"payload":    map[string]any{"document_id": "doc-1"},
	})
	require.NoError(t, err)

	err = consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: value})
	require.NoError(t, err)
	assert.Empty(t, store.deleted)
}
