package http

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/vovakirdan/wirechat-rooms/internal/core"
)

func TestHealthEndpoint(t *testing.T) {
	ts, _ := startTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestCreateChatShareURL(t *testing.T) {
	ts, _ := startTestServer(t)

	var resp CreateChatResponse
	if code := doJSON(t, ts, http.MethodPost, "/api/create_chat", "", &resp); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	want := ts.URL + "/?join=" + resp.ChatID
	if resp.ShareURL != want {
		t.Fatalf("expected share url %q, got %q", want, resp.ShareURL)
	}
}

func TestSendAndReadMessages(t *testing.T) {
	ts, _ := startTestServer(t)
	chatID := createChat(t, ts)

	for _, m := range []struct{ user, text string }{{"alice", "hi"}, {"bob", "yo"}} {
		var resp SendResponse
		body := fmt.Sprintf(`{"chat_id":%q,"username":%q,"message":%q}`, chatID, m.user, m.text)
		if code := doJSON(t, ts, http.MethodPost, "/api/send", body, &resp); code != http.StatusOK {
			t.Fatalf("send: status %d", code)
		}
	}

	var page MessagesResponse
	if code := doJSON(t, ts, http.MethodGet, "/api/messages?chat_id="+chatID, "", &page); code != http.StatusOK {
		t.Fatalf("messages: status %d", code)
	}
	if len(page.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(page.Messages))
	}
	first, second := page.Messages[0], page.Messages[1]
	if first.Username != "alice" || first.Message != "hi" || first.Seq != 1 {
		t.Fatalf("unexpected first message %+v", first)
	}
	if second.Username != "bob" || second.Message != "yo" || second.Seq != 2 {
		t.Fatalf("unexpected second message %+v", second)
	}
	if len(first.Time) != 5 || first.Time[2] != ':' {
		t.Fatalf("expected HH:MM time, got %q", first.Time)
	}
	if page.Next != 2 {
		t.Fatalf("expected next cursor 2, got %d", page.Next)
	}

	var rest MessagesResponse
	doJSON(t, ts, http.MethodGet, "/api/messages?chat_id="+chatID+"&after=1&limit=10", "", &rest)
	if len(rest.Messages) != 1 || rest.Messages[0].Seq != 2 {
		t.Fatalf("expected only seq 2 after cursor 1, got %+v", rest.Messages)
	}
}

func TestSendErrors(t *testing.T) {
	ts, _ := startTestServer(t)
	chatID := createChat(t, ts)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{
			name:   "missing parameters",
			body:   fmt.Sprintf(`{"chat_id":%q,"username":"alice"}`, chatID),
			status: http.StatusBadRequest,
			code:   errCodeBadRequest,
		},
		{
			name:   "malformed json",
			body:   `{"chat_id":`,
			status: http.StatusBadRequest,
			code:   errCodeBadRequest,
		},
		{
			name:   "empty message",
			body:   fmt.Sprintf(`{"chat_id":%q,"username":"alice","message":"  "}`, chatID),
			status: http.StatusBadRequest,
			code:   core.ErrCodeValidation,
		},
		{
			name:   "unknown chat",
			body:   `{"chat_id":"ghost","username":"alice","message":"hi"}`,
			status: http.StatusNotFound,
			code:   core.ErrCodeRoomNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp ErrorResponse
			if code := doJSON(t, ts, http.MethodPost, "/api/send", tt.body, &resp); code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, code)
			}
			if resp.Status != statusError || resp.Code != tt.code {
				t.Fatalf("unexpected error response %+v", resp)
			}
		})
	}

	var page MessagesResponse
	doJSON(t, ts, http.MethodGet, "/api/messages?chat_id="+chatID, "", &page)
	if len(page.Messages) != 0 {
		t.Fatalf("rejected sends must not be stored, got %d messages", len(page.Messages))
	}
}

func TestMessagesBadRequests(t *testing.T) {
	ts, _ := startTestServer(t)
	chatID := createChat(t, ts)

	var resp ErrorResponse
	if code := doJSON(t, ts, http.MethodGet, "/api/messages", "", &resp); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if resp.Message != "Missing chat_id" {
		t.Fatalf("unexpected message %q", resp.Message)
	}

	for _, query := range []string{"&after=-1", "&after=abc", "&limit=x"} {
		if code := doJSON(t, ts, http.MethodGet, "/api/messages?chat_id="+chatID+query, "", nil); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", query, code)
		}
	}

	if code := doJSON(t, ts, http.MethodGet, "/api/messages?chat_id=ghost", "", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown chat, got %d", code)
	}
}

func TestDeleteChatIsIdempotent(t *testing.T) {
	ts, _ := startTestServer(t)
	chatID := createChat(t, ts)

	var first, second struct {
		Status  string `json:"status"`
		Deleted bool   `json:"deleted"`
	}
	if code := doJSON(t, ts, http.MethodDelete, "/api/chats/"+chatID, "", &first); code != http.StatusOK || !first.Deleted {
		t.Fatalf("first delete: status %d, %+v", code, first)
	}
	if code := doJSON(t, ts, http.MethodDelete, "/api/chats/"+chatID, "", &second); code != http.StatusOK || second.Deleted {
		t.Fatalf("second delete: status %d, %+v", code, second)
	}

	body := fmt.Sprintf(`{"chat_id":%q,"username":"alice","message":"hi"}`, chatID)
	if code := doJSON(t, ts, http.MethodPost, "/api/send", body, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", code)
	}
}

func TestListAndGetChats(t *testing.T) {
	ts, broker := startTestServer(t)
	chatID := createChat(t, ts)
	createChat(t, ts)

	mustPublishViaBroker(t, broker, chatID)

	var list struct {
		Chats []ChatResponse `json:"chats"`
	}
	if code := doJSON(t, ts, http.MethodGet, "/api/chats", "", &list); code != http.StatusOK {
		t.Fatalf("list: status %d", code)
	}
	if len(list.Chats) != 2 {
		t.Fatalf("expected 2 chats, got %d", len(list.Chats))
	}

	var one struct {
		Chat ChatResponse `json:"chat"`
	}
	if code := doJSON(t, ts, http.MethodGet, "/api/chats/"+chatID, "", &one); code != http.StatusOK {
		t.Fatalf("get: status %d", code)
	}
	if one.Chat.ChatID != chatID || one.Chat.LastSeq != 1 {
		t.Fatalf("unexpected chat %+v", one.Chat)
	}

	if code := doJSON(t, ts, http.MethodGet, "/api/chats/ghost", "", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := startTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/send", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), "POST") {
		t.Fatalf("POST not allowed: %q", resp.Header.Get("Access-Control-Allow-Methods"))
	}
}
