package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/classroom-service/internal/config"
)

type recordedCall struct {
	task string
	err  error
}

type callRecorder struct {
	calls []recordedCall
}

func (r *callRecorder) ObserveLLMCall(task string, _ time.Duration, err error) {
	r.calls = append(r.calls, recordedCall{task: task, err: err})
}

// completionServer answers every request with content as the assistant message
func completionServer(t *testing.T, status int, content string) (*httptest.Server, *chatRequest) {
	t.Helper()
	var received chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		resp := map[string]any{
			"id":    "chatcmpl-1",
			"model": "test-model",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func newTestClient(baseURL string, observer CallObserver) *Client {
	return NewClient(config.LLMConfig{BaseURL: baseURL, APIKey: "test-key", Model: "test-model", Timeout: 5 * time.Second}, observer)
}

func TestExtractResources(t *testing.T) {
	srv, received := completionServer(t, http.StatusOK,
		`{"resources":[{"title":"Guía 1","url":"https://example.com/guia.pdf","kind":"document"}]}`)
	recorder := &callRecorder{}
	client := newTestClient(srv.URL, recorder)

	got, err := client.ExtractResources(context.Background(), "Guía 1: https://example.com/guia.pdf")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "document", got[0].Kind)

	assert.Equal(t, "test-model", received.Model)
	require.NotNil(t, received.ResponseFormat)
	assert.Equal(t, "json_object", received.ResponseFormat.Type)
	require.Len(t, received.Messages, 2)
	assert.Equal(t, ResourcesPrompt, received.Messages[0].Content)

	require.Len(t, recorder.calls, 1)
	assert.Equal(t, TaskResources, recorder.calls[0].task)
	assert.NoError(t, recorder.calls[0].err)
}

func TestExtractAssignments_DefaultsMaxGrade(t *testing.T) {
	srv, received := completionServer(t, http.StatusOK,
		"```json\n{\"assignments\":[{\"title\":\"TP1\",\"description\":\"Leer\",\"due_date\":\"2026-05-01\"}]}\n```")
	client := newTestClient(srv.URL, nil)

	got, err := client.ExtractAssignments(context.Background(), "TP1 para el 1 de mayo", 2026)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10.0, got[0].MaxGrade)
	assert.Contains(t, received.Messages[1].Content, "2026")
}

func TestCompleteJSON_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
		check   func(t *testing.T, err error)
	}{
		{
			name:    "invalid json",
			status:  http.StatusOK,
			content: "no puedo ayudar con eso",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidJSON)
			},
		},
		{
			name:    "empty answer",
			status:  http.StatusOK,
			content: "   ",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResponse)
			},
		},
		{
			name:    "missing key",
			status:  http.StatusOK,
			content: `{"items":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidJSON)
			},
		},
		{
			name:   "api error",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
				assert.Equal(t, "rate limited", apiErr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := completionServer(t, tt.status, tt.content)
			recorder := &callRecorder{}
			client := newTestClient(srv.URL, recorder)

			_, err := client.ExtractRoster(context.Background(), "Ana Pérez")
			require.Error(t, err)
			tt.check(t, err)
			require.Len(t, recorder.calls, 1)
		})
	}
}

func TestMatchNames_DropsUnknownEmails(t *testing.T) {
	srv, _ := completionServer(t, http.StatusOK,
		`{"matches":[{"name":"ana perez","email":"ANA@school.edu","confidence":0.9},{"name":"x","email":"ghost@school.edu","confidence":0.8}]}`)
	client := newTestClient(srv.URL, nil)

	got, err := client.MatchNames(context.Background(), []string{"ana perez", "x"}, []NameCandidate{
		{Email: "ana@school.edu", FullName: "Ana Pérez"},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ana@school.edu", got[0].Email)
	assert.Empty(t, got[1].Email)
	assert.Zero(t, got[1].Confidence)
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.LLMConfig{}, nil)
	_, err := client.ExtractRoster(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, defaultBaseURL, client.baseURL)
}
