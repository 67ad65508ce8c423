// Package httpapi exposes pkg/pool, pkg/store and pkg/fsops over HTTP and
// WebSocket, adapted from the teacher's pkg/handler package: same gin
// handler shape and models.Response{Code,Message,Data} envelope, but every
// handler here is grounded on a pool.Pool/store.TargetStore instead of the
// teacher's service layer.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/pool"
)

// statusForError maps the pool's sentinel error taxonomy onto HTTP status
// codes, per the table original_source's apis/handlers error middleware
// encodes implicitly through its Result<_, ApiError> conversions.
func statusForError(err error) int {
	switch {
	case errors.Is(err, pool.ErrTargetNotFound):
		return http.StatusNotFound
	case errors.Is(err, pool.ErrAuthFailure), errors.Is(err, pool.ErrConnectFailure):
		return http.StatusBadGateway
	case errors.Is(err, pool.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, pool.ErrCapacityExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, pool.ErrConnectionExpired), errors.Is(err, pool.ErrSessionClosed), errors.Is(err, pool.ErrPoolClosed):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func fail(c *gin.Context, err error) {
	status := statusForError(err)
	c.JSON(status, models.Response{Code: status, Message: err.Error()})
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, models.Response{Code: 0, Message: "ok", Data: data})
}
