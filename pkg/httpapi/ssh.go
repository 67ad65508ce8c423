package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/webssh/sshgate/pkg/fsops"
	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/pool"
	"github.com/webssh/sshgate/pkg/termbridge"
)

// SSHHandler serves interactive terminals, one-shot exec calls, and the
// exec-backed cp/rm -rf operations, all over leased channels. The terminal
// path is grounded on the teacher's TerminalService.RunTerminal
// (pkg/service/terminal_service.go) for the WebSocket upgrade/ping-pong
// setup.
type SSHHandler struct {
	p      *pool.Pool
	logger *slog.Logger
}

func NewSSHHandler(p *pool.Pool, logger *slog.Logger) *SSHHandler {
	return &SSHHandler{p: p, logger: logger}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (h *SSHHandler) Terminal(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Query("target_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "target_id is required"})
		return
	}
	rows, _ := strconv.Atoi(c.DefaultQuery("rows", "24"))
	cols, _ := strconv.Atoi(c.DefaultQuery("cols", "80"))
	term := c.Query("term")

	lease, err := h.p.LeaseChannel(c.Request.Context(), targetID)
	if err != nil {
		fail(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "target_id", targetID, "error", err)
		_ = lease.Close()
		return
	}

	bridge, err := termbridge.New(lease, conn, term, rows, cols, h.logger)
	if err != nil {
		h.logger.Error("failed to start shell", "target_id", targetID, "error", err)
		_ = lease.Close()
		_ = conn.Close()
		return
	}
	h.logger.Info("terminal session started", "target_id", targetID, "connection_id", lease.ConnectionID)
	bridge.Run(c.Request.Context())
}

type copyOrRemoveRequest struct {
	TargetID int64  `json:"target_id" binding:"required"`
	From     string `json:"from"`
	To       string `json:"to"`
	Path     string `json:"path"`
}

// Copy and RemoveAll expose fsops's exec-backed cp -r / rm -rf for clients
// that prefer a JSON body over query params (the WebSocket/upload/download
// endpoints all use query params since they're driven by <form>/<a href>
// elements; these two take a plain JSON body).
func (h *SSHHandler) Copy(c *gin.Context) {
	var req copyOrRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "invalid request: " + err.Error()})
		return
	}
	fs := fsops.New(h.p, req.TargetID)
	if err := fs.Copy(c.Request.Context(), req.From, req.To); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *SSHHandler) RemoveAll(c *gin.Context) {
	var req copyOrRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "invalid request: " + err.Error()})
		return
	}
	fs := fsops.New(h.p, req.TargetID)
	if err := fs.RemoveAll(c.Request.Context(), req.Path); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// Exec runs a one-shot command on the target host over a leased channel and
// returns its stdout, stderr and exit status. Query params rather than a
// JSON body, matching Terminal's style for this group of endpoints.
func (h *SSHHandler) Exec(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Query("target_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "target_id is required"})
		return
	}
	command := c.Query("command")
	if strings.TrimSpace(command) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "command is required"})
		return
	}

	fs := fsops.New(h.p, targetID)
	res, err := fs.Exec(c.Request.Context(), command)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, res)
}
