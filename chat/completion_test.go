package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/ai/mock"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/search"
	"github.com/poiesic/ragserve/storage"
	badgerstore "github.com/poiesic/ragserve/storage/badger"
	chromemstore "github.com/poiesic/ragserve/storage/chromem"
	sqlitestore "github.com/poiesic/ragserve/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceEnv struct {
	service   *Service
	store     *ConversationStore
	generator *mock.MockGenerator
	embedder  *mock.MockEmbedder
}

func newServiceEnv(t *testing.T, seed []string, opts ...ServiceOption) *serviceEnv {
	t.Helper()
	ctx := context.Background()

	blobs, err := badgerstore.NewMemoryBlobStore()
	require.NoError(t, err)
	metadata, err := sqlitestore.NewStore(t.TempDir())
	require.NoError(t, err)
	vectors, err := chromemstore.NewMemoryIndex()
	require.NoError(t, err)
	coordinator, err := storage.NewCoordinator(blobs, metadata, vectors)
	require.NoError(t, err)
	t.Cleanup(func() { coordinator.Close() })

	embedder := mock.NewMockEmbedder()

	if len(seed) > 0 {
		docID, err := coordinator.SaveDocument(ctx, []byte(strings.Join(seed, "\n\n")), "seed.txt")
		require.NoError(t, err)
		chunks := make([]core.Chunk, len(seed))
		for i, content := range seed {
			chunks[i] = core.Chunk{ID: uuid.New(), DocumentID: docID, Content: content, Sequence: i}
		}
		embeddings, err := embedder.EmbedTexts(ctx, seed)
		require.NoError(t, err)
		require.NoError(t, coordinator.SaveProcessedChunks(ctx, docID, chunks, embeddings))
	}

	retriever, err := search.NewRetriever(coordinator, embedder)
	require.NoError(t, err)

	store := newTestStore(t)
	generator := mock.NewMockGenerator()

	service, err := NewService(retriever, generator, store, opts...)
	require.NoError(t, err)

	return &serviceEnv{service: service, store: store, generator: generator, embedder: embedder}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	env := newServiceEnv(t, nil)

	_, err := NewService(nil, env.generator, env.store)
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	retriever := env.service.retriever
	_, err = NewService(retriever, nil, env.store)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = NewService(retriever, env.generator, nil)
	assert.ErrorIs(t, err, ErrConversationStoreRequired)
}

func TestGetResponseGroundsAnswerInContext(t *testing.T) {
	env := newServiceEnv(t, []string{
		"The warehouse opens at six in the morning.",
		"Deliveries are accepted until noon.",
	})

	var captured []core.Message
	env.generator.CompleteFunc = func(_ context.Context, messages []core.Message) (string, error) {
		captured = messages
		return "It opens at six.", nil
	}

	resp, err := env.service.GetResponse(context.Background(), "The warehouse opens at six in the morning.", "")
	require.NoError(t, err)
	assert.Equal(t, "It opens at six.", resp.Answer)
	assert.NotEmpty(t, resp.Chunks)
	assert.Contains(t, resp.Context, "[1] ")

	// system instruction first, templated user prompt last
	require.GreaterOrEqual(t, len(captured), 2)
	assert.Equal(t, core.RoleSystem, captured[0].Role)
	last := captured[len(captured)-1]
	assert.Equal(t, core.RoleUser, last.Role)
	assert.Contains(t, last.Content, "Context:")
	assert.Contains(t, last.Content, "Question: The warehouse opens at six in the morning.")
	assert.Contains(t, last.Content, "I don't have enough information to answer that.")
}

func TestGetResponseEmptyQuestion(t *testing.T) {
	env := newServiceEnv(t, nil)

	_, err := env.service.GetResponse(context.Background(), "  ", "c1")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestGetResponseNoContext(t *testing.T) {
	env := newServiceEnv(t, nil)

	resp, err := env.service.GetResponse(context.Background(), "anything?", "")
	require.NoError(t, err)
	assert.Empty(t, resp.Chunks)
	assert.Empty(t, resp.Context)
}

func TestGetResponseMaintainsConversationHistory(t *testing.T) {
	env := newServiceEnv(t, []string{"Grapes grow on vines."})

	resp1, err := env.service.GetResponse(context.Background(), "Where do grapes grow?", "c1")
	require.NoError(t, err)
	require.Len(t, resp1.History, 2)

	resp2, err := env.service.GetResponse(context.Background(), "And apples?", "c1")
	require.NoError(t, err)
	require.Len(t, resp2.History, 4)

	assert.Equal(t, "Where do grapes grow?", resp2.History[0].Content)
	assert.Equal(t, core.RoleAssistant, resp2.History[1].Role)
	assert.Equal(t, "And apples?", resp2.History[2].Content)
	assert.Equal(t, core.RoleAssistant, resp2.History[3].Role)

	stored, ok := env.store.GetHistory("c1")
	require.True(t, ok)
	assert.Len(t, stored, 4)
}

func TestGetResponseHistoryIncludedInPrompt(t *testing.T) {
	env := newServiceEnv(t, []string{"Grapes grow on vines."})

	_, err := env.service.GetResponse(context.Background(), "Where do grapes grow?", "c1")
	require.NoError(t, err)

	var captured []core.Message
	env.generator.CompleteFunc = func(_ context.Context, messages []core.Message) (string, error) {
		captured = messages
		return "follow-up answer", nil
	}

	_, err = env.service.GetResponse(context.Background(), "And apples?", "c1")
	require.NoError(t, err)

	// system + 2 history + templated user prompt
	require.Len(t, captured, 4)
	assert.Equal(t, "Where do grapes grow?", captured[1].Content)
}

func TestGetResponseGenerationFailureLeavesHistoryUntouched(t *testing.T) {
	env := newServiceEnv(t, []string{"Grapes grow on vines."})

	env.generator.CompleteFunc = func(_ context.Context, _ []core.Message) (string, error) {
		return "", errors.New("model offline")
	}

	_, err := env.service.GetResponse(context.Background(), "Where do grapes grow?", "c1")
	require.Error(t, err)
	assert.True(t, core.IsProcessingError(err))

	_, ok := env.store.GetHistory("c1")
	assert.False(t, ok)
}

func TestGetResponseWithoutConversationSkipsStore(t *testing.T) {
	env := newServiceEnv(t, []string{"Grapes grow on vines."})

	_, err := env.service.GetResponse(context.Background(), "Where do grapes grow?", "")
	require.NoError(t, err)
	assert.Zero(t, env.store.Len())
}

func TestConversationLockReleasedOnEviction(t *testing.T) {
	env := newServiceEnv(t, []string{"Grapes grow on vines."})

	store := newTestStore(t,
		WithExpiry(50*time.Millisecond),
		WithCleanupInterval(10*time.Millisecond),
	)
	service, err := NewService(env.service.retriever, env.generator, store)
	require.NoError(t, err)

	_, err = service.GetResponse(context.Background(), "Where do grapes grow?", "c1")
	require.NoError(t, err)

	_, held := service.locks.Load("c1")
	require.True(t, held)

	// Reclaiming the conversation must drop its mutex too. Polling
	// GetHistory would refresh the access time, so poll Len instead.
	require.Eventually(t, func() bool {
		if store.Len() != 0 {
			return false
		}
		_, held := service.locks.Load("c1")
		return !held
	}, 5*time.Second, 10*time.Millisecond)
}
