package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/termprov/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termprov/internal/infrastructure/tracing"
	ptyterm "github.com/GriffinCanCode/termprov/internal/providers/terminal"
	"github.com/GriffinCanCode/termprov/internal/shared/id"
	"github.com/GriffinCanCode/termprov/internal/terminal"
)

// Provisioner plans and starts terminals
type Provisioner interface {
	Plan(ctx context.Context, req terminal.Request) (*terminal.LaunchPlan, error)
	Provision(ctx context.Context, req terminal.Request, window id.WindowID) (*terminal.Handle, error)
	LocalHandles() []*terminal.Handle
	Mode() string
}

// Sessions performs I/O on running terminals
type Sessions interface {
	Write(sessionID id.TerminalID, input []byte) error
	Read(sessionID id.TerminalID) ([]byte, error)
	Resize(sessionID id.TerminalID, cols, rows int) error
	Kill(sessionID id.TerminalID) error
	GetSession(sessionID id.TerminalID) (*ptyterm.SessionInfo, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	provisioner Provisioner
	sessions    Sessions
	metrics     *monitoring.Metrics
	tracer      *tracing.Tracer
	logger      *zap.Logger

	// handles keeps provisioned terminals reachable until their session ends.
	// The provisioner's registry only holds weak references and is what List
	// reports.
	mu      sync.RWMutex
	handles map[id.TerminalID]*terminal.Handle
}

// NewHandlers creates a new handler set. metrics and tracer may be nil.
func NewHandlers(
	provisioner Provisioner,
	sessions Sessions,
	metrics *monitoring.Metrics,
	tracer *tracing.Tracer,
	logger *zap.Logger,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		provisioner: provisioner,
		sessions:    sessions,
		metrics:     metrics,
		tracer:      tracer,
		logger:      logger,
		handles:     make(map[id.TerminalID]*terminal.Handle),
	}
}

// Register mounts the routes on router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics/json", h.MetricsJSON)

	router.POST("/plans", h.Plan)

	router.POST("/terminals", h.Provision)
	router.GET("/terminals", h.List)
	router.GET("/terminals/:id", h.Get)
	router.POST("/terminals/:id/input", h.Input)
	router.POST("/terminals/:id/resize", h.Resize)
	router.GET("/terminals/:id/output", h.Output)
	router.DELETE("/terminals/:id", h.Kill)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "termprov",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"mode":      h.provisioner.Mode(),
		"terminals": len(h.provisioner.LocalHandles()),
	})
}

// ProvisionRequest is the body of POST /plans and POST /terminals
type ProvisionRequest struct {
	terminal.Request
	Window string `json:"window,omitempty"`
}

func (h *Handlers) bind(c *gin.Context) (ProvisionRequest, bool) {
	var body ProvisionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return body, false
	}
	if body.Kind == terminal.KindTask && body.Task != nil && body.Task.ID == "" {
		task := *body.Task
		task.ID = uuid.NewString()
		body.Task = &task
	}
	if err := body.Validate(); err != nil {
		respondError(c, err)
		return body, false
	}
	return body, true
}

// Plan computes a launch plan without starting anything
func (h *Handlers) Plan(c *gin.Context) {
	body, ok := h.bind(c)
	if !ok {
		return
	}

	plan, err := h.provisioner.Plan(c.Request.Context(), body.Request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// Provision starts a terminal
func (h *Handlers) Provision(c *gin.Context) {
	body, ok := h.bind(c)
	if !ok {
		return
	}
	req := body.Request

	window := id.WindowID(body.Window)
	if window == "" {
		window = id.NewWindowID()
	}

	ctx := c.Request.Context()
	var span *tracing.Span
	if h.tracer != nil {
		span, ctx = h.tracer.StartSpan(ctx, "terminal.provision")
		span.SetTag("kind", string(req.Kind))
		span.SetTag("mode", h.provisioner.Mode())
		defer func() {
			span.Finish()
			h.tracer.Submit(span)
		}()
	}

	handle, err := h.provisioner.Provision(ctx, req, window)
	if err != nil {
		if span != nil {
			span.SetError(err)
		}
		respondError(c, err)
		return
	}
	if span != nil {
		span.SetTag("terminal_id", handle.ID.String())
	}

	h.retain(handle)
	c.JSON(http.StatusCreated, handle)
}

func (h *Handlers) retain(handle *terminal.Handle) {
	h.mu.Lock()
	h.handles[handle.ID] = handle
	h.mu.Unlock()

	if handle.Session == nil {
		return
	}
	go func() {
		<-handle.Session.Done()
		h.forget(handle.ID)
	}()
}

func (h *Handlers) forget(terminalID id.TerminalID) {
	h.mu.Lock()
	delete(h.handles, terminalID)
	h.mu.Unlock()
}

func (h *Handlers) lookup(terminalID id.TerminalID) (*terminal.Handle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handle, ok := h.handles[terminalID]
	return handle, ok
}

// List returns every live terminal in registration order
func (h *Handlers) List(c *gin.Context) {
	handles := h.provisioner.LocalHandles()
	c.JSON(http.StatusOK, gin.H{
		"terminals": handles,
		"count":     len(handles),
	})
}

// TerminalResponse pairs a handle with the state of its process
type TerminalResponse struct {
	*terminal.Handle
	Session *ptyterm.SessionInfo `json:"session,omitempty"`
}

// Get returns one terminal
func (h *Handlers) Get(c *gin.Context) {
	terminalID := id.TerminalID(c.Param("id"))

	handle, ok := h.lookup(terminalID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "terminal not found"})
		return
	}

	resp := TerminalResponse{Handle: handle}
	if info, err := h.sessions.GetSession(terminalID); err == nil {
		resp.Session = info
	}
	c.JSON(http.StatusOK, resp)
}

// InputRequest carries keystrokes for a terminal
type InputRequest struct {
	Data string `json:"data" binding:"required"`
}

// Input writes to a terminal
func (h *Handlers) Input(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := h.sessions.Write(id.TerminalID(c.Param("id")), []byte(req.Data)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResizeRequest carries new terminal dimensions
type ResizeRequest struct {
	Cols int `json:"cols" binding:"required,min=1"`
	Rows int `json:"rows" binding:"required,min=1"`
}

// Resize changes a terminal's dimensions
func (h *Handlers) Resize(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	if err := h.sessions.Resize(id.TerminalID(c.Param("id")), req.Cols, req.Rows); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Output drains buffered terminal output
func (h *Handlers) Output(c *gin.Context) {
	data, err := h.sessions.Read(id.TerminalID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// Kill terminates a terminal
func (h *Handlers) Kill(c *gin.Context) {
	terminalID := id.TerminalID(c.Param("id"))

	if err := h.sessions.Kill(terminalID); err != nil {
		respondError(c, err)
		return
	}
	h.forget(terminalID)

	h.logger.Info("Killed terminal", zap.String("id", terminalID.String()))
	c.Status(http.StatusNoContent)
}

// MetricsJSON returns a JSON summary of the Prometheus counters
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	snapshot := h.metrics.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"timestamp":          time.Now(),
		"metrics":            snapshot,
		"average_latency_ms": snapshot.AverageLatency() * 1000,
	})
}
