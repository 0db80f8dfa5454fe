package http

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"ibridge/internal/domain"
	"ibridge/internal/domain/ports"
	"ibridge/internal/services/inbox"
	"ibridge/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, *testutil.MockAutomator) {
	t.Helper()

	mockAutomator := testutil.NewMockAutomator()
	mockHub := testutil.NewMockEventHub()

	store, err := inbox.Open(filepath.Join(t.TempDir(), "inbox.db"), mockHub)
	if err != nil {
		t.Fatalf("open inbox: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return NewServer("127.0.0.1", 0, mockAutomator, nil, store, nil, nil, nil), mockAutomator
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("parse JSON %q: %v", body, err)
	}
	return result
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.handleHealth(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["status"] != "ok" {
		t.Errorf("expected status ok, got %v", result["status"])
	}
}

func TestHandleState(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.StateResult = ports.EditorState{Model: "Claude Sonnet 4", Mode: "Agent"}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	server.handleState(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["model"] != "Claude Sonnet 4" || result["mode"] != "Agent" {
		t.Errorf("unexpected state body %v", result)
	}
}

func TestHandleStateUnreachable(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.StateErr = domain.ErrConnClosed

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	w := httptest.NewRecorder()
	server.handleState(w, req)

	if w.Result().StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", w.Result().StatusCode)
	}
}

func TestHandleSetModel(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.SelectResult = ports.SelectResult{Success: true, Requested: "gpt", Selected: "GPT-5"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/model", strings.NewReader(`{"name":"gpt"}`))
	w := httptest.NewRecorder()
	server.handleSetModel(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	result := decodeBody(t, resp)
	if result["success"] != true || result["selected"] != "GPT-5" {
		t.Errorf("unexpected body %v", result)
	}
	if calls := mockAutomator.SetModelCalls(); len(calls) != 1 || calls[0] != "gpt" {
		t.Errorf("expected SetModel(%q), got %v", "gpt", calls)
	}
}

func TestHandleSetModelStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"empty input", domain.ErrEmptyInput, http.StatusBadRequest},
		{"no target", domain.ErrNoEditorTarget, http.StatusServiceUnavailable},
		{"no match", domain.ErrNoCandidateMatch, http.StatusOK},
		{"not clickable", domain.ErrNotClickable, http.StatusOK},
		{"timeout", domain.ErrCallTimeout, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, mockAutomator := newTestServer(t)
			mockAutomator.SelectErr = tt.err

			req := httptest.NewRequest(http.MethodPost, "/api/v1/model", strings.NewReader(`{"name":"x"}`))
			w := httptest.NewRecorder()
			server.handleSetModel(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Result().StatusCode)
			}
		})
	}
}

func TestHandleSetModelInvalidBody(t *testing.T) {
	server, mockAutomator := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/model", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	server.handleSetModel(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Result().StatusCode)
	}
	if len(mockAutomator.SetModelCalls()) != 0 {
		t.Error("automator should not be called on invalid body")
	}
}

func TestHandleWorkspace(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.SetPath("/home/dev/demo", true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workspace", nil)
	w := httptest.NewRecorder()
	server.handleWorkspace(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	result := decodeBody(t, resp)
	if result["path"] != "/home/dev/demo" || result["known"] != true {
		t.Errorf("unexpected body %v", result)
	}
}

func TestHandleRespondApprovalBadDecision(t *testing.T) {
	server, mockAutomator := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/approvals/respond", strings.NewReader(`{"decision":"maybe"}`))
	w := httptest.NewRecorder()
	server.handleRespondApproval(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Result().StatusCode)
	}
	if len(mockAutomator.RespondCalls()) != 0 {
		t.Error("automator should not be called for an invalid decision")
	}
}

func TestHandleScreenshot(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.Image = []byte{0x89, 'P', 'N', 'G'}
	mockAutomator.ImageFormat = "png"

	req := httptest.NewRequest(http.MethodGet, "/api/v1/screenshot", nil)
	w := httptest.NewRecorder()
	server.handleScreenshot(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected Content-Type image/png, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 4 {
		t.Errorf("expected 4 image bytes, got %d", len(body))
	}
}

func TestHandleScreenshotNoTarget(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.ScreenshotErr = domain.ErrNoEditorTarget

	req := httptest.NewRequest(http.MethodGet, "/api/v1/screenshot", nil)
	w := httptest.NewRecorder()
	server.handleScreenshot(w, req)

	if w.Result().StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Result().StatusCode)
	}
}

func TestMessagesRoundTrip(t *testing.T) {
	server, _ := newTestServer(t)

	// Send
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"body":"ship it"}`))
	w := httptest.NewRecorder()
	server.handleSendMessage(w, req)
	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Result().StatusCode)
	}

	// History
	req = httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	w = httptest.NewRecorder()
	server.handleHistory(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	result := decodeBody(t, resp)
	msgs, ok := result["messages"].([]interface{})
	if !ok || len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %v", result["messages"])
	}

	// Clear
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/messages", nil)
	w = httptest.NewRecorder()
	server.handleClearMessages(w, req)
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Result().StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/messages", nil)
	w = httptest.NewRecorder()
	server.handleHistory(w, req)
	result = decodeBody(t, w.Result())
	if msgs, _ := result["messages"].([]interface{}); len(msgs) != 0 {
		t.Errorf("expected empty history after clear, got %v", msgs)
	}
}

func TestHandleStatus(t *testing.T) {
	server, mockAutomator := newTestServer(t)
	mockAutomator.AvailableResult = true

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	server.handleStatus(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	result := decodeBody(t, resp)
	if result["automation_available"] != true {
		t.Errorf("expected automation_available true, got %v", result)
	}
	if _, ok := result["quota"]; ok {
		t.Error("quota should be absent without a provider")
	}
}
