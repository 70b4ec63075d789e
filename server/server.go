package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/wikivec/internal/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is both the request and the reply envelope on /ws.
type Message struct {
	Type     string      `json:"type"`
	Content  string      `json:"content,omitempty"`
	Positive []string    `json:"positive,omitempty"`
	Negative []string    `json:"negative,omitempty"`
	TopN     int         `json:"top_n,omitempty"`
	Data     interface{} `json:"data,omitempty"`
}

type Config struct {
	Addr        string
	DefaultTopN int
	// MaxTopN caps the top_n a client may ask for.
	MaxTopN int
	// MaxInFlight bounds the requests handled at once per connection.
	MaxInFlight  int
	QueryTimeout time.Duration
}

type WSServer struct {
	config   Config
	searcher types.Searcher
	embedder embeddings.Embedder
}

// NewWSServer serves analogy queries from searcher. embedder may be nil,
// in which case "embed" requests are answered with an error.
func NewWSServer(config Config, searcher types.Searcher, embedder embeddings.Embedder) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.DefaultTopN == 0 {
		config.DefaultTopN = 10
	}
	if config.MaxTopN == 0 {
		config.MaxTopN = 100
	}
	if config.DefaultTopN > config.MaxTopN {
		config.DefaultTopN = config.MaxTopN
	}
	if config.MaxInFlight == 0 {
		config.MaxInFlight = 4
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 10 * time.Second
	}
	return &WSServer{
		config:   config,
		searcher: searcher,
		embedder: embedder,
	}
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{Addr: s.config.Addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting WebSocket server on %s", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// gorilla allows one concurrent writer
	var writeMu sync.Mutex
	send := func(msg Message) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("Error sending message: %v", err)
		}
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	inFlight := make(chan struct{}, s.config.MaxInFlight)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Error reading message: %v", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			send(Message{Type: "error", Content: "invalid message: " + err.Error()})
			continue
		}

		// Reading stalls while MaxInFlight requests are pending
		inFlight <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-inFlight
				wg.Done()
			}()
			send(s.safeHandleMessage(r.Context(), msg))
		}()
	}
}

// safeHandleMessage turns a panic in a searcher into an error reply so one
// request cannot take the process down.
func (s *WSServer) safeHandleMessage(ctx context.Context, msg Message) (reply Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic handling %q message: %v", msg.Type, r)
			reply = Message{Type: "error", Content: "internal error"}
		}
	}()
	return s.handleMessage(ctx, msg)
}

func (s *WSServer) handleMessage(ctx context.Context, msg Message) Message {
	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	switch msg.Type {
	case "similar":
		n := msg.TopN
		switch {
		case n < 0:
			return Message{Type: "error", Content: fmt.Sprintf("top_n must be positive, got %d", n)}
		case n == 0:
			n = s.config.DefaultTopN
		case n > s.config.MaxTopN:
			n = s.config.MaxTopN
		}
		neighbors, err := s.searcher.MostSimilar(ctx, msg.Positive, msg.Negative, n)
		if err != nil {
			return Message{Type: "error", Content: err.Error()}
		}
		return Message{Type: "result", Data: neighbors}

	case "embed":
		if s.embedder == nil {
			return Message{Type: "error", Content: "embedding is not available"}
		}
		vec, err := s.embedder.EmbedQuery(ctx, msg.Content)
		if err != nil {
			return Message{Type: "error", Content: err.Error()}
		}
		return Message{Type: "result", Data: vec}
	}

	return Message{Type: "error", Content: "unknown message type: " + msg.Type}
}
