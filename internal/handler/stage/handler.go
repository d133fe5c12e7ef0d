// Package stage bridges a browser conversation scene to a conversation.Session
// over a WebSocket: one session per connection, closed when the socket goes away.
package stage

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/model/persona"
	"github.com/ourhouse/backend/pkg/logging"
	"github.com/ourhouse/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Config 会话节奏配置。
type Config struct {
	SeedGreeting   string
	TypingInterval time.Duration
}

// Handler WebSocket 场景处理器
type Handler struct {
	client   conversation.DialogueService
	personas persona.Store
	cfg      Config
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

// New 创建场景处理器
func New(client conversation.DialogueService, personas persona.Store, cfg Config, logger logrus.FieldLogger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		client:   client,
		personas: personas,
		cfg:      cfg,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/conversation/{id1}/{id2}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string  `json:"type"`
	Text *string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// socket serializes writes; gorilla allows one concurrent writer.
type socket struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	logger logrus.FieldLogger
}

func (s *socket) send(msgType string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	msg := outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.WithError(err).Debug("write failed")
		s.closed = true
	}
}

func (s *socket) sendError(message string) {
	s.send("error", map[string]string{"message": message})
}

func (s *socket) shutdown() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// handleWebSocket mounts the scene for the two roster indices in the route.
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	first, err := persona.ResolveIndex(h.personas, chi.URLParam(r, "id1"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	second, err := persona.ResolveIndex(h.personas, chi.URLParam(r, "id2"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.logger.WithFields(logrus.Fields{"p1": first.ID, "p2": second.ID})
	log.Info("scene mounted")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sock := &socket{conn: conn, logger: log}
	defer sock.shutdown()

	session := conversation.New(h.client, h.personas,
		conversation.WithSeedGreeting(h.cfg.SeedGreeting),
		conversation.WithTypingInterval(h.cfg.TypingInterval),
		conversation.WithLogger(log),
		conversation.WithOnChange(func(st conversation.State) {
			sock.send("state", st)
		}),
	)
	defer session.Close()

	var inflight sync.WaitGroup
	defer inflight.Wait()
	// cancel must run before Wait so blocked remote calls return.
	defer cancel()

	run := func(fn func(context.Context) error) {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			err := fn(ctx)
			if errors.Is(err, conversation.ErrBusy) {
				sock.sendError(conversation.KindBusy.Message())
			}
		}()
	}

	run(func(ctx context.Context) error {
		return session.Initialize(ctx, first.ID, second.ID)
	})

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("read error")
			}
			log.Info("scene unmounted")
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "advance":
			text := msg.Text
			run(func(ctx context.Context) error {
				return session.Advance(ctx, text)
			})
		case "retry":
			run(session.Reinitialize)
		case "state":
			sock.send("state", session.State())
		default:
			sock.sendError("unsupported message type: " + msg.Type)
		}
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
