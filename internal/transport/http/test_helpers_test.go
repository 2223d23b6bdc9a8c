package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-rooms/internal/config"
	"github.com/vovakirdan/wirechat-rooms/internal/core"
)

func startTestServer(t *testing.T) (*httptest.Server, *core.Broker) {
	t.Helper()

	logger := zerolog.Nop()
	broker := core.NewBroker(core.DefaultOptions(), nil, &logger)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second

	server := NewServer(broker, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		broker.Close()
		ts.Close()
	})

	return ts, broker
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, body string, out any) int {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func createChat(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	var resp CreateChatResponse
	if code := doJSON(t, ts, http.MethodPost, "/api/create_chat", `{"username":"alice"}`, &resp); code != http.StatusOK {
		t.Fatalf("create chat: status %d", code)
	}
	if resp.Status != statusSuccess || resp.ChatID == "" {
		t.Fatalf("unexpected create response %+v", resp)
	}
	return resp.ChatID
}

func mustPublishViaBroker(t *testing.T, broker *core.Broker, chatID string) core.Message {
	t.Helper()

	msg, err := broker.Publish(context.Background(), chatID, "server", "seeded")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	return msg
}
