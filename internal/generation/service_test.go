package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/18061718791/AITestCraft-sub000/internal/notify"

	"github.com/go-chi/chi/v5"
	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
	clients  []string
}

func (n *recordingNotifier) Send(clientID string, msg notify.Message) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients = append(n.clients, clientID)
	n.messages = append(n.messages, msg)
	return 1
}

func (n *recordingNotifier) snapshot() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.messages...)
}

// fakeModel serves a streaming chat completion made of chunks, or fails with
// status when it is non-zero.
func fakeModel(t *testing.T, status int, chunks ...string) (*httptest.Server, *[]openai.ChatCompletionRequest) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests []openai.ChatCompletionRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			mu.Lock()
			requests = append(requests, req)
			mu.Unlock()
		}
		if status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = fmt.Fprint(w, `{"error":{"message":"model unavailable","type":"server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			payload, _ := json.Marshal(map[string]any{
				"id":      "chunk",
				"object":  "chat.completion.chunk",
				"created": 1,
				"model":   req.Model,
				"choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": chunk}}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", payload)
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestService(t *testing.T, baseURL string, notifier Notifier, opts ...Option) *Service {
	t.Helper()
	logger, _ := test.NewNullLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	service := NewService(NewClient("test-key", baseURL), notifier, opts...)
	t.Cleanup(service.Close)
	return service
}

func TestGenerateStreamsChunksThenDone(t *testing.T) {
	server, requests := fakeModel(t, 0, "- 登录成功", "\n- 密码错误")
	notifier := &recordingNotifier{}
	service := newTestService(t, server.URL, notifier, WithModel("local-model"))

	taskID, err := service.Generate(Request{ClientID: " tab-1 ", Requirement: "用户登录", Kind: KindPoints})
	require.NoError(t, err)
	require.NotEmpty(t, taskID)
	service.Wait()

	got := notifier.snapshot()
	require.Len(t, got, 3)
	assert.Equal(t, notify.Message{Type: MessageChunk, TaskID: taskID, Content: "- 登录成功"}, got[0])
	assert.Equal(t, notify.Message{Type: MessageChunk, TaskID: taskID, Content: "\n- 密码错误"}, got[1])
	assert.Equal(t, notify.Message{Type: MessageDone, TaskID: taskID, Content: "- 登录成功\n- 密码错误"}, got[2])
	assert.Equal(t, []string{"tab-1", "tab-1", "tab-1"}, notifier.clients)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "local-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "用户登录")
	assert.Contains(t, req.Messages[1].Content, "测试点")
}

func TestGenerateCasesPromptListsImportColumns(t *testing.T) {
	prompt := userPrompt(Request{Requirement: "导出报表", Kind: KindCases})
	assert.Contains(t, prompt, "标题、系统、模块、场景")
	assert.Contains(t, prompt, "导出报表")
}

func TestGenerateReportsUpstreamFailure(t *testing.T) {
	server, _ := fakeModel(t, http.StatusInternalServerError)
	notifier := &recordingNotifier{}
	service := newTestService(t, server.URL, notifier)

	taskID, err := service.Generate(Request{ClientID: "tab-1", Requirement: "x"})
	require.NoError(t, err)
	service.Wait()

	got := notifier.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, MessageError, got[0].Type)
	assert.Equal(t, taskID, got[0].TaskID)
	assert.NotEmpty(t, got[0].Content)
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	service := newTestService(t, "http://127.0.0.1:1", &recordingNotifier{})

	tests := []Request{
		{Requirement: "x"},
		{ClientID: "tab-1", Requirement: "   "},
		{ClientID: "tab-1", Requirement: "x", Kind: "poem"},
	}
	for _, req := range tests {
		_, err := service.Generate(req)
		assert.ErrorIs(t, err, ErrInvalidRequest, "%+v", req)
	}
}

func TestGenerateDisabledWithoutClient(t *testing.T) {
	service := NewService(NewClient("", ""), &recordingNotifier{})
	t.Cleanup(service.Close)

	_, err := service.Generate(Request{ClientID: "tab-1", Requirement: "x"})
	require.ErrorIs(t, err, ErrDisabled)
}

func TestHandlerStatusCodes(t *testing.T) {
	server, _ := fakeModel(t, 0, "ok")
	service := newTestService(t, server.URL, &recordingNotifier{})
	router := chi.NewRouter()
	NewHTTPHandler(service).Register(router)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ai/generate", bytes.NewBufferString(body)))
		return rec
	}

	rec := post(`{"clientId":"tab-1","requirement":"登录","kind":"cases"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["taskId"])

	assert.Equal(t, http.StatusBadRequest, post(`{"clientId":"tab-1"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)

	disabled := chi.NewRouter()
	NewHTTPHandler(NewService(nil, nil)).Register(disabled)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ai/generate", bytes.NewBufferString(`{"clientId":"a","requirement":"b"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
