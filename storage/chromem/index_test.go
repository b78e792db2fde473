package chromem

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(documentID uuid.UUID, contents []string) ([]core.Chunk, [][]float32) {
	chunks := make([]core.Chunk, len(contents))
	vectors := make([][]float32, len(contents))
	for i, content := range contents {
		chunks[i] = core.Chunk{
			ID:         uuid.New(),
			DocumentID: documentID,
			Content:    content,
			Sequence:   i,
			CreatedAt:  time.Now(),
		}
		// Orthogonal-ish unit vectors so similarity ordering is predictable.
		vec := make([]float32, 4)
		vec[i%4] = 1.0
		vectors[i] = vec
	}
	return chunks, vectors
}

func TestIndexAddAndSearch(t *testing.T) {
	index, err := NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()

	ctx := context.Background()
	docID := uuid.New()
	chunks, vectors := makeChunks(docID, []string{"alpha", "beta", "gamma"})

	require.NoError(t, index.Add(ctx, chunks, vectors))

	results, err := index.Search(ctx, vectors[1], 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	top := results[0]
	assert.Equal(t, "beta", top.Content)
	assert.Equal(t, docID, top.DocumentID)
	assert.Equal(t, 1, top.Sequence)
	assert.Equal(t, chunks[1].ID.String(), top.EmbeddingID)
	assert.Greater(t, top.Score, results[1].Score)
}

func TestIndexSearchEmpty(t *testing.T) {
	index, err := NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()

	results, err := index.Search(context.Background(), []float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexSearchClampsLimit(t *testing.T) {
	index, err := NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()

	ctx := context.Background()
	chunks, vectors := makeChunks(uuid.New(), []string{"only"})
	require.NoError(t, index.Add(ctx, chunks, vectors))

	results, err := index.Search(ctx, vectors[0], 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestIndexSearchRejectsBadLimit(t *testing.T) {
	index, err := NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()

	_, err = index.Search(context.Background(), []float32{1}, 0)
	assert.Error(t, err)
}

func TestIndexAddCountMismatch(t *testing.T) {
	index, err := NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()

	chunks, _ := makeChunks(uuid.New(), []string{"a", "b"})
	err = index.Add(context.Background(), chunks, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, storage.ErrVectorCountMismatch)
}

func TestIndexDeleteByDocument(t *testing.T) {
	index, err := NewMemoryIndex()
	require.NoError(t, err)
	defer index.Close()

	ctx := context.Background()
	keepDoc := uuid.New()
	dropDoc := uuid.New()

	keepChunks, keepVectors := makeChunks(keepDoc, []string{"keep"})
	dropChunks, dropVectors := makeChunks(dropDoc, []string{"drop one", "drop two"})
	require.NoError(t, index.Add(ctx, keepChunks, keepVectors))
	require.NoError(t, index.Add(ctx, dropChunks, dropVectors))

	require.NoError(t, index.DeleteByDocument(ctx, dropDoc))

	results, err := index.Search(ctx, keepVectors[0], 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, keepDoc, results[0].DocumentID)
}

func TestIndexPersistence(t *testing.T) {
	dir := t.TempDir()

	index, err := NewIndex(dir)
	require.NoError(t, err)

	ctx := context.Background()
	docID := uuid.New()
	chunks, vectors := makeChunks(docID, []string{"persisted"})
	require.NoError(t, index.Add(ctx, chunks, vectors))
	require.NoError(t, index.Close())

	reopened, err := NewIndex(dir)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, vectors[0], 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted", results[0].Content)
}
