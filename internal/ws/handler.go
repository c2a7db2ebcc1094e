package ws

import (
	"context"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/monitoring"
	ptyterm "github.com/GriffinCanCode/termprov/internal/providers/terminal"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
)

const (
	writeWait    = 10 * time.Second
	pollInterval = 50 * time.Millisecond
	maxFrameSize = 64 * 1024
)

// Sessions is the PTY surface the stream needs
type Sessions interface {
	Write(sessionID id.TerminalID, input []byte) error
	Read(sessionID id.TerminalID) ([]byte, error)
	Resize(sessionID id.TerminalID, cols, rows int) error
	GetSession(sessionID id.TerminalID) (*ptyterm.SessionInfo, error)
}

// Message is one frame in either direction
type Message struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
	Code *int   `json:"code,omitempty"`
}

// Message types
const (
	TypeInput  = "input"
	TypeResize = "resize"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeOutput = "output"
	TypeExit   = "exit"
	TypeError  = "error"
)

// Handler streams terminal output over WebSocket connections
type Handler struct {
	sessions Sessions
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. checkOrigin may be nil to
// accept any origin.
func NewHandler(sessions Sessions, metrics *monitoring.Metrics, logger *zap.Logger, checkOrigin func(string) bool) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || checkOrigin == nil || checkOrigin(origin)
			},
		},
	}
}

// conn serializes writes; gorilla allows one concurrent writer
type conn struct {
	ws      *websocket.Conn
	mu      sync.Mutex
	metrics *monitoring.Metrics
}

func (c *conn) send(msg Message) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.metrics.RecordWSMessage("out")
	return nil
}

// HandleConnection upgrades GET /terminals/:id/stream
func (h *Handler) HandleConnection(c *gin.Context) {
	terminalID := id.TerminalID(c.Param("id"))
	if _, err := h.sessions.GetSession(terminalID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal not found"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxFrameSize)

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	out := &conn{ws: ws, metrics: h.metrics}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go func() {
		defer cancel()
		h.readLoop(ctx, out, terminalID)
	}()
	h.pump(ctx, out, terminalID)
}

// readLoop applies client frames until the connection drops
func (h *Handler) readLoop(ctx context.Context, c *conn, terminalID id.TerminalID) {
	for ctx.Err() == nil {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		h.metrics.RecordWSMessage("in")

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			_ = c.send(Message{Type: TypeError, Data: "malformed message"})
			continue
		}
		if err := h.apply(c, terminalID, msg); err != nil {
			_ = c.send(Message{Type: TypeError, Data: err.Error()})
		}
	}
}

func (h *Handler) apply(c *conn, terminalID id.TerminalID, msg Message) error {
	switch msg.Type {
	case TypeInput:
		return h.sessions.Write(terminalID, []byte(msg.Data))
	case TypeResize:
		return h.sessions.Resize(terminalID, msg.Cols, msg.Rows)
	case TypePing:
		return c.send(Message{Type: TypePong})
	default:
		return c.send(Message{Type: TypeError, Data: "unknown message type " + msg.Type})
	}
}

// pump forwards buffered output until the process exits or ctx ends
func (h *Handler) pump(ctx context.Context, c *conn, terminalID id.TerminalID) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// carry holds a rune split across two PTY reads
	var carry []byte
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		data, err := h.sessions.Read(terminalID)
		if err != nil {
			_ = c.send(Message{Type: TypeError, Data: err.Error()})
			return
		}
		var text string
		text, carry = splitRunes(append(carry, data...))
		if text != "" {
			if err := c.send(Message{Type: TypeOutput, Data: text}); err != nil {
				return
			}
		}

		info, err := h.sessions.GetSession(terminalID)
		if err != nil {
			return
		}
		if !info.Active {
			// drain anything written between the read and the exit
			if rest, err := h.sessions.Read(terminalID); err == nil {
				carry = append(carry, rest...)
			}
			if len(carry) > 0 {
				_ = c.send(Message{Type: TypeOutput, Data: string(carry)})
			}
			_ = c.send(Message{Type: TypeExit, Code: info.ExitCode})
			c.mu.Lock()
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "process exited"),
				time.Now().Add(writeWait))
			c.mu.Unlock()
			return
		}
	}
}

// splitRunes returns data as text up to a trailing incomplete UTF-8
// sequence, which is returned separately for the next read.
func splitRunes(data []byte) (string, []byte) {
	for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(data[i]) {
			continue
		}
		if utf8.FullRune(data[i:]) {
			break
		}
		return string(data[:i]), append([]byte(nil), data[i:]...)
	}
	return string(data), nil
}
