package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/store"
)

// TargetHandler is the CRUD surface over persisted targets, grounded on the
// teacher's AssetHandler shape (ShouldBindJSON, c.Param("id"), Response
// envelope, structured logging with clientIP on every mutation).
type TargetHandler struct {
	store  *store.TargetStore
	logger *slog.Logger
}

func NewTargetHandler(s *store.TargetStore, logger *slog.Logger) *TargetHandler {
	return &TargetHandler{store: s, logger: logger}
}

type createTargetRequest struct {
	Name       string             `json:"name" binding:"required"`
	Host       string             `json:"host" binding:"required"`
	Port       int                `json:"port"`
	User       string             `json:"user" binding:"required"`
	Method     models.AuthMethod  `json:"method" binding:"required"`
	Password   string             `json:"password,omitempty"`
	PrivateKey string             `json:"private_key,omitempty"`
	Passphrase string             `json:"passphrase,omitempty"`
	OSHint     string             `json:"os_hint,omitempty"`
}

func (h *TargetHandler) Create(c *gin.Context) {
	var req createTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "invalid request: " + err.Error()})
		return
	}
	if req.Port == 0 {
		req.Port = 22
	}
	rec := &models.Target{
		Name:       req.Name,
		Host:       req.Host,
		Port:       req.Port,
		User:       req.User,
		Method:     req.Method,
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		Passphrase: req.Passphrase,
		OSHint:     req.OSHint,
	}
	if err := h.store.Add(c.Request.Context(), rec); err != nil {
		h.logger.Error("create target failed", "error", err, "clientIP", c.ClientIP())
		fail(c, err)
		return
	}
	h.logger.Info("target created", "id", rec.ID, "host", rec.Host, "clientIP", c.ClientIP())
	ok(c, rec)
}

func (h *TargetHandler) List(c *gin.Context) {
	recs, err := h.store.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, recs)
}

func (h *TargetHandler) Get(c *gin.Context) {
	id, err := parseTargetID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	rec, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, rec)
}

func (h *TargetHandler) Update(c *gin.Context) {
	id, err := parseTargetID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	var req createTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "invalid request: " + err.Error()})
		return
	}
	rec := &models.Target{
		ID:         id,
		Name:       req.Name,
		Host:       req.Host,
		Port:       req.Port,
		User:       req.User,
		Method:     req.Method,
		Password:   req.Password,
		PrivateKey: req.PrivateKey,
		Passphrase: req.Passphrase,
		OSHint:     req.OSHint,
	}
	if err := h.store.Update(c.Request.Context(), rec); err != nil {
		h.logger.Warn("update target failed", "id", id, "error", err, "clientIP", c.ClientIP())
		fail(c, err)
		return
	}
	h.logger.Info("target updated", "id", id, "clientIP", c.ClientIP())
	ok(c, rec)
}

func (h *TargetHandler) Delete(c *gin.Context) {
	id, err := parseTargetID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: err.Error()})
		return
	}
	if err := h.store.Remove(c.Request.Context(), id); err != nil {
		h.logger.Warn("delete target failed", "id", id, "error", err, "clientIP", c.ClientIP())
		fail(c, err)
		return
	}
	h.logger.Info("target deleted", "id", id, "clientIP", c.ClientIP())
	ok(c, nil)
}

func parseTargetID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
