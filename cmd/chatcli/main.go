package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-rooms/internal/proto"
)

type options struct {
	server string
	chatID string
	user   string
	after  uint64
}

// outbound mirrors proto.Outbound with Data left raw for per-event decoding.
type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error,omitempty"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:          "chatcli",
		Short:        "Command line client for a wirechat rooms server",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:8080", "server base URL")
	root.PersistentFlags().StringVar(&opts.chatID, "chat", "", "chat id to join (a new chat is created when empty)")
	root.PersistentFlags().StringVar(&opts.user, "user", "cli-user", "username")
	root.PersistentFlags().Uint64Var(&opts.after, "after", 0, "replay messages after this sequence number")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Join a chat interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runChat(ctx, opts)
		},
	}

	var (
		text    string
		timeout time.Duration
	)
	smokeCmd := &cobra.Command{
		Use:   "smoke",
		Short: "Send one message and wait for it to come back",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runSmoke(ctx, opts, text)
		},
	}
	smokeCmd.Flags().StringVar(&text, "text", "hello from smoke test", "message text to send")
	smokeCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "total timeout for the run")

	root.AddCommand(chatCmd, smokeCmd)
	return root
}

func runChat(ctx context.Context, opts options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, chatID, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("Connected to chat %s as %s\n", chatID, opts.user)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, opts.user)
	return nil
}

func runSmoke(ctx context.Context, opts options, text string) error {
	conn, chatID, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, opts.user, text); err != nil {
		return err
	}

	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if out.Error != nil {
			return fmt.Errorf("server error %s: %s", out.Error.Code, out.Error.Msg)
		}
		if out.Event != proto.EventMessage {
			continue
		}
		var msg proto.Message
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		if msg.Username == opts.user && msg.Message == text {
			fmt.Printf("ok: chat=%s seq=%d time=%s\n", chatID, msg.Seq, msg.Time)
			return nil
		}
	}
}

// connect creates a chat when none is given and opens its websocket stream.
func connect(ctx context.Context, opts options) (*websocket.Conn, string, error) {
	base, err := url.Parse(opts.server)
	if err != nil {
		return nil, "", fmt.Errorf("parse server url: %w", err)
	}

	chatID := opts.chatID
	if chatID == "" {
		chatID, err = createChat(ctx, base, opts.user)
		if err != nil {
			return nil, "", err
		}
	}

	wsURL := *base
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = strings.TrimSuffix(wsURL.Path, "/") + "/ws"
	q := url.Values{}
	q.Set("chat_id", chatID)
	q.Set("after", strconv.FormatUint(opts.after, 10))
	wsURL.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("dial: %w", err)
	}
	return conn, chatID, nil
}

func createChat(ctx context.Context, base *url.URL, user string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": user})
	if err != nil {
		return "", fmt.Errorf("marshal create chat: %w", err)
	}

	endpoint := base.JoinPath("api", "create_chat")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	defer resp.Body.Close()

	var created struct {
		Status   string `json:"status"`
		ChatID   string `json:"chat_id"`
		ShareURL string `json:"share_url"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decode create chat: %w", err)
	}
	if resp.StatusCode != http.StatusOK || created.ChatID == "" {
		return "", fmt.Errorf("create chat: status %d: %s", resp.StatusCode, created.Message)
	}

	fmt.Printf("Created chat %s (share: %s)\n", created.ChatID, created.ShareURL)
	return created.ChatID, nil
}

func send(ctx context.Context, conn *websocket.Conn, user, text string) error {
	payload, err := json.Marshal(proto.MsgData{Username: user, Message: text})
	if err != nil {
		return fmt.Errorf("marshal msg: %w", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMsg, Data: payload}); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			fmt.Fprintf(os.Stderr, "read error: %v\n", err)
			return
		}

		if out.Error != nil {
			fmt.Fprintf(os.Stderr, "error %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}

		switch out.Event {
		case proto.EventMessage:
			var msg proto.Message
			if err := json.Unmarshal(out.Data, &msg); err != nil {
				fmt.Fprintf(os.Stderr, "unmarshal message: %v\n", err)
				continue
			}
			fmt.Printf("[%s] #%d %s: %s\n", msg.Time, msg.Seq, msg.Username, msg.Message)
		case proto.EventHello:
			var hello proto.Hello
			if err := json.Unmarshal(out.Data, &hello); err != nil {
				fmt.Fprintf(os.Stderr, "unmarshal hello: %v\n", err)
				continue
			}
			fmt.Printf("joined %s (protocol %d, after %d)\n", hello.Chat, hello.Protocol, hello.After)
		default:
			fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, user string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if err := send(ctx, conn, user, text); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				return
			}
		}
	}
}
