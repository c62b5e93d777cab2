package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// Opener accepts one open command without blocking.
type Opener interface {
	Open()
}

// Config holds the websocket control channel settings. An empty URL
// disables the listener.
type Config struct {
	URL           string `yaml:"url"`
	APIKey        string `yaml:"api_key"`        // sent as the first message, or $DOOR_OPENER_API_KEY
	ReconnectSecs int    `yaml:"reconnect_secs"` // default 5
}

type message struct {
	Type string `json:"type"`
}

// Listener keeps a websocket open to the control server and forwards
// {"type":"Open"} messages to the door.
type Listener struct {
	url       string
	apiKey    string
	reconnect time.Duration
	door      Opener
	dialer    *websocket.Dialer
}

// NewListener creates a Listener. Run must be called to connect.
func NewListener(cfg Config, door Opener) *Listener {
	if cfg.ReconnectSecs <= 0 {
		cfg.ReconnectSecs = 5
	}
	return &Listener{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		reconnect: time.Duration(cfg.ReconnectSecs) * time.Second,
		door:      door,
		dialer:    websocket.DefaultDialer,
	}
}

// Run connects and reconnects until ctx is done.
func (l *Listener) Run(ctx context.Context) {
	for {
		if err := l.session(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Control websocket: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.reconnect):
		}
	}
}

func (l *Listener) session(ctx context.Context) error {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(l.apiKey)); err != nil {
		return fmt.Errorf("send api key: %w", err)
	}
	log.Printf("Control websocket connected to %s", l.url)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Control websocket closed")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		if mt != websocket.TextMessage {
			log.Printf("Unsupported control message type %d", mt)
			continue
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Bad control message %q: %v", data, err)
			continue
		}

		switch msg.Type {
		case "Open":
			log.Printf("Remote open via websocket")
			l.door.Open()
		default:
			log.Printf("Unknown control message type %q", msg.Type)
		}
	}
}
