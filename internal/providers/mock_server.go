package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is a mock inference backend for adapter and gateway tests.
// Responses are queued per path; the last queued response repeats.
type MockServer struct {
	server    *httptest.Server
	responses map[string][]MockResponse
	requests  []RecordedRequest
	mu        sync.Mutex
}

// MockResponse defines a mock response configuration.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string
}

// RecordedRequest is a request received by the mock server.
type RecordedRequest struct {
	Path    string
	Headers http.Header
	Body    []byte
}

// JSON decodes the recorded body into a generic map.
func (r RecordedRequest) JSON() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.Body, &m)
	return m
}

// NewMockServer creates and starts a new mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		responses: make(map[string][]MockResponse),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse replaces the queue for path with a single repeating response.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = []MockResponse{response}
}

// QueueResponses replaces the queue for path. Responses are served in order
// and the last one repeats.
func (ms *MockServer) QueueResponses(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = append([]MockResponse(nil), responses...)
}

// GetRequestCount returns the number of requests received.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// Requests returns a copy of the received requests.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]RecordedRequest(nil), ms.requests...)
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{Path: r.URL.Path, Headers: r.Header.Clone(), Body: body})
	queue, ok := ms.responses[r.URL.Path]
	var response MockResponse
	if ok && len(queue) > 0 {
		response = queue[0]
		if len(queue) > 1 {
			ms.responses[r.URL.Path] = queue[1:]
		}
	}
	ms.mu.Unlock()

	if !ok || len(queue) == 0 {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	w.WriteHeader(response.StatusCode)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// MockOllamaResponse creates a mock Ollama /api/chat response.
func MockOllamaResponse(content, model string) map[string]any {
	return map[string]any{
		"model":      model,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"message": map[string]any{
			"role":    "assistant",
			"content": content,
		},
		"done":              true,
		"done_reason":       "stop",
		"prompt_eval_count": 10,
		"eval_count":        20,
	}
}

// MockOpenAIResponse creates a mock OpenAI chat completion response.
func MockOpenAIResponse(content, model string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     10,
			"completion_tokens": 20,
			"total_tokens":      30,
		},
	}
}
