package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/ragserve/ai/mock"
	"github.com/poiesic/ragserve/chat"
	"github.com/poiesic/ragserve/core"
	"github.com/poiesic/ragserve/ingestion"
	"github.com/poiesic/ragserve/search"
	"github.com/poiesic/ragserve/storage"
	badgerstore "github.com/poiesic/ragserve/storage/badger"
	chromemstore "github.com/poiesic/ragserve/storage/chromem"
	sqlitestore "github.com/poiesic/ragserve/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverEnv struct {
	server    *httptest.Server
	extractor *mock.MockExtractor
	generator *mock.MockGenerator
}

func newServerEnv(t *testing.T) *serverEnv {
	t.Helper()

	blobs, err := badgerstore.NewMemoryBlobStore()
	require.NoError(t, err)
	metadata, err := sqlitestore.NewStore(t.TempDir())
	require.NoError(t, err)
	vectors, err := chromemstore.NewMemoryIndex()
	require.NoError(t, err)
	coordinator, err := storage.NewCoordinator(blobs, metadata, vectors)
	require.NoError(t, err)
	t.Cleanup(func() { coordinator.Close() })

	extractor := mock.NewMockExtractor()
	embedder := mock.NewMockEmbedder()
	generator := mock.NewMockGenerator()

	pipeline, err := ingestion.NewPipeline(coordinator, extractor, embedder)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	retriever, err := search.NewRetriever(coordinator, embedder)
	require.NoError(t, err)

	conversations, err := chat.NewConversationStore()
	require.NoError(t, err)
	t.Cleanup(func() { conversations.Close() })

	chatService, err := chat.NewService(retriever, generator, conversations)
	require.NoError(t, err)

	srv, err := NewServer(pipeline, chatService, coordinator)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &serverEnv{server: ts, extractor: extractor, generator: generator}
}

func (e *serverEnv) upload(t *testing.T, filename, content string) (*http.Response, uploadResponse) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(e.server.URL+"/documents/upload", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func (e *serverEnv) status(t *testing.T, docID string) (int, string) {
	t.Helper()

	resp, err := http.Get(e.server.URL + "/documents/" + docID + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body statusResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body.Status
}

func (e *serverEnv) waitForStatus(t *testing.T, docID, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, status := e.status(t, docID)
		return status == want
	}, 10*time.Second, 20*time.Millisecond)
}

func longText() string {
	var b strings.Builder
	for b.Len() < 2000 {
		b.WriteString("The annual report covers revenue, costs, and projections for the coming year. ")
	}
	return b.String()
}

func TestUploadPollChat(t *testing.T) {
	env := newServerEnv(t)

	resp, body := env.upload(t, "report.txt", longText())
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "processing", body.Status)
	require.NotEmpty(t, body.DocumentID)

	env.waitForStatus(t, body.DocumentID, "completed")

	chatBody, err := json.Marshal(chatRequest{Content: "What does the annual report cover?", ConversationID: "c1"})
	require.NoError(t, err)
	chatResp, err := http.Post(env.server.URL+"/chat", "application/json", bytes.NewReader(chatBody))
	require.NoError(t, err)
	defer chatResp.Body.Close()

	require.Equal(t, http.StatusOK, chatResp.StatusCode)
	var answer chatResponse
	require.NoError(t, json.NewDecoder(chatResp.Body).Decode(&answer))
	assert.NotEmpty(t, answer.Response)
	assert.Equal(t, []string{body.DocumentID}, answer.Sources)
}

func TestUploadFailureSurfacesFailedStatus(t *testing.T) {
	env := newServerEnv(t)
	env.extractor.ExtractTextFunc = func(_ context.Context, _ []byte) (string, error) {
		return "", errors.New("unreadable")
	}

	resp, body := env.upload(t, "bad.bin", "garbled")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	env.waitForStatus(t, body.DocumentID, "failed")
}

func TestUploadMissingFileField(t *testing.T) {
	env := newServerEnv(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("other", "value"))
	require.NoError(t, writer.Close())

	resp, err := http.Post(env.server.URL+"/documents/upload", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusUnknownDocument(t *testing.T) {
	env := newServerEnv(t)

	code, status := env.status(t, uuid.NewString())
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", status)
}

func TestStatusInvalidID(t *testing.T) {
	env := newServerEnv(t)

	code, _ := env.status(t, "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeleteDocument(t *testing.T) {
	env := newServerEnv(t)

	_, body := env.upload(t, "doomed.txt", longText())
	env.waitForStatus(t, body.DocumentID, "completed")

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/documents/"+body.DocumentID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, status := env.status(t, body.DocumentID)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", status)
}

func TestChatEmptyQuestion(t *testing.T) {
	env := newServerEnv(t)

	body, err := json.Marshal(chatRequest{Content: "   "})
	require.NoError(t, err)
	resp, err := http.Post(env.server.URL+"/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatMalformedBody(t *testing.T) {
	env := newServerEnv(t)

	resp, err := http.Post(env.server.URL+"/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatGenerationFailure(t *testing.T) {
	env := newServerEnv(t)
	env.generator.CompleteFunc = func(_ context.Context, _ []core.Message) (string, error) {
		return "", errors.New("model offline")
	}

	body, err := json.Marshal(chatRequest{Content: "hello?"})
	require.NoError(t, err)
	resp, err := http.Post(env.server.URL+"/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var errBody errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
	assert.NotEmpty(t, errBody.Detail)
}

func TestCORSPreflight(t *testing.T) {
	env := newServerEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestMethodNotAllowed(t *testing.T) {
	env := newServerEnv(t)

	resp, err := http.Get(env.server.URL + "/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
