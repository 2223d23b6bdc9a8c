package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-rooms/internal/core"
	"github.com/vovakirdan/wirechat-rooms/internal/proto"
)

type sseEvent struct {
	id    string
	event string
	data  string
}

func readSSEEvent(t *testing.T, scanner *bufio.Scanner) sseEvent {
	t.Helper()

	var ev sseEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if ev.event != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, "id:"):
			ev.id = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case strings.HasPrefix(line, "event:"):
			ev.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
	t.Fatalf("stream ended before a full event: %v", scanner.Err())
	return ev
}

func TestSSEStreamsMessagesUntilDelete(t *testing.T) {
	ts, broker := startTestServer(t)
	chatID := createChat(t, ts)
	mustPublishViaBroker(t, broker, chatID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream?chat_id="+chatID, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)

	first := readSSEEvent(t, scanner)
	if first.event != proto.EventMessage || first.id != "1" {
		t.Fatalf("unexpected first event %+v", first)
	}

	mustPublishViaBroker(t, broker, chatID)
	second := readSSEEvent(t, scanner)
	var msg proto.Message
	if err := json.Unmarshal([]byte(second.data), &msg); err != nil {
		t.Fatalf("decode data %q: %v", second.data, err)
	}
	if second.id != "2" || msg.Seq != 2 || msg.Username != "server" {
		t.Fatalf("unexpected live event %+v / %+v", second, msg)
	}

	broker.DeleteRoom(ctx, chatID)
	final := readSSEEvent(t, scanner)
	if final.event != proto.OutboundTypeError {
		t.Fatalf("expected error event, got %+v", final)
	}
	var protoErr proto.Error
	if err := json.Unmarshal([]byte(final.data), &protoErr); err != nil {
		t.Fatalf("decode error %q: %v", final.data, err)
	}
	if protoErr.Code != core.ErrCodeRoomDeleted {
		t.Fatalf("expected room_deleted, got %+v", protoErr)
	}
}

func TestSSEUnknownChat(t *testing.T) {
	ts, _ := startTestServer(t)

	var resp ErrorResponse
	if code := doJSON(t, ts, http.MethodGet, "/api/stream?chat_id=ghost", "", &resp); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if resp.Code != core.ErrCodeRoomNotFound {
		t.Fatalf("unexpected code %q", resp.Code)
	}
}
