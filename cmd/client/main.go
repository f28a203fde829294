package main

import (
	"bufio"
	"chat-relay/domain/event"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `envconfig:"CHAT_SERVER_URL" default:"ws://localhost:8080/ws"`
	UserID    string `envconfig:"CHAT_USER_ID" required:"true"`
	PeerID    string `envconfig:"CHAT_PEER_ID"`
	// CHAT_TOKEN is only needed when the server runs with AUTH_SECRET
	Token   string `envconfig:"CHAT_TOKEN"`
	Colours bool   `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run attaches to the relay, registers the user and forwards stdin lines:
//
//	/to <user>     opens the chat with <user>
//	/read <chat>   marks a chat as read
//	anything else  is sent to the current peer
func run() (int, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	if config.Token != "" {
		header.Set("Authorization", "Bearer "+config.Token)
	} else {
		header.Set("X-User-ID", config.UserID)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, header)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer func() { _ = conn.Close() }()

	p := printer{colours: config.Colours, self: config.UserID}
	if err := send(conn, event.RegisterUser{UserID: config.UserID}); err != nil {
		return exitRuntime, err
	}
	p.info(fmt.Sprintf(">>> Connected to %s as %s (Ctrl+C to quit)", config.ServerURL, config.UserID))

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go readInput(ctx, conn, &p, config.PeerID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		}
		out, err := event.DecodeOutbound(raw)
		if err != nil {
			p.failure(err.Error())
			continue
		}
		p.print(out)
	}
}

func readInput(ctx context.Context, conn *websocket.Conn, p *printer, peer string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() && ctx.Err() == nil {
		line := strings.TrimSpace(scanner.Text())
		var err error
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/to "):
			peer = strings.TrimSpace(strings.TrimPrefix(line, "/to "))
			err = send(conn, event.CreateChat{UserID1: p.self, UserID2: peer})
		case strings.HasPrefix(line, "/read "):
			err = send(conn, event.MarkRead{SessionID: strings.TrimSpace(strings.TrimPrefix(line, "/read ")), UserID: p.self})
		case peer == "":
			p.failure("no peer yet, use /to <user>")
		default:
			err = send(conn, event.SendMessage{Sender: p.self, Receiver: peer, Kind: "text", Content: line})
		}
		if err != nil {
			p.failure(err.Error())
			return
		}
	}
}

func send(conn *websocket.Conn, in event.Inbound) error {
	raw, err := event.EncodeInbound(in)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}

type printer struct {
	colours bool
	self    string
}

func (p printer) print(out event.Outbound) {
	switch e := out.(type) {
	case event.MessageDelivered:
		line := fmt.Sprintf("[%s] %s: %s", e.CreatedAt.Local().Format("15:04:05"), e.Sender, e.Content)
		if e.Sender == p.self {
			p.render(color.FgGray, line)
		} else {
			p.render(color.FgGreen, line)
		}
	case event.GlobalMessage:
	case event.ChatSessionCreated:
		p.info("chat " + e.SessionID)
	case event.TypingSignal:
		p.render(color.FgGray, e.Sender+" is typing...")
	case event.StopTypingSignal:
	case event.PresenceChanged:
		state := "offline"
		if e.Online {
			state = "online"
		}
		p.render(color.FgCyan, fmt.Sprintf("%s is %s", e.UserID, state))
	case event.MessagesRead:
		p.render(color.FgGray, fmt.Sprintf("%s read chat %s", e.Reader, e.SessionID))
	case event.MessageFailed:
		p.failure("message failed: " + e.Info)
	case event.Failure:
		p.failure(e.Info)
	}
}

func (p printer) info(s string) { p.render(color.FgCyan, s) }

func (p printer) failure(s string) { p.render(color.FgRed, s) }

func (p printer) render(c color.Color, s string) {
	if p.colours {
		s = color.New(c).Render(s)
	}
	fmt.Println(s)
}
