package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/pool"
)

// ConnectionHandler exposes Pool.ListConnections and Pool.Expire, grounded
// on original_source's apis/handlers/ssh_connection/{list,expire}.rs.
type ConnectionHandler struct {
	p *pool.Pool
}

func NewConnectionHandler(p *pool.Pool) *ConnectionHandler {
	return &ConnectionHandler{p: p}
}

func (h *ConnectionHandler) List(c *gin.Context) {
	var targetID *int64
	if raw := c.Query("target_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "invalid target_id"})
			return
		}
		targetID = &id
	}
	ok(c, h.p.ListConnections(targetID))
}

type expireRequest struct {
	TargetID     int64  `json:"target_id" binding:"required"`
	ConnectionID string `json:"connection_id" binding:"required"`
}

func (h *ConnectionHandler) Expire(c *gin.Context) {
	var req expireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "invalid request: " + err.Error()})
		return
	}
	if !h.p.Expire(req.TargetID, req.ConnectionID) {
		c.JSON(http.StatusNotFound, models.Response{Code: 404, Message: "connection not found"})
		return
	}
	ok(c, nil)
}
