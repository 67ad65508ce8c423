package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/webssh/sshgate/pkg/fsops"
	"github.com/webssh/sshgate/pkg/models"
	"github.com/webssh/sshgate/pkg/pool"
)

// FSHandler adapts the teacher's FSHandler (pkg/handler/fs_handlers.go) to a
// single pool.Pool: every request names its target with ?target_id= instead
// of the teacher's asset_id/container_id EndpointSpec, since this service
// only ever talks to one kind of endpoint (an SSH host).
type FSHandler struct {
	p      *pool.Pool
	logger *slog.Logger
}

func NewFSHandler(p *pool.Pool, logger *slog.Logger) *FSHandler {
	return &FSHandler{p: p, logger: logger}
}

func (h *FSHandler) fsFor(c *gin.Context) (*fsops.FileSystem, bool) {
	raw := c.Query("target_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "target_id is required"})
		return nil, false
	}
	return fsops.New(h.p, id), true
}

func (h *FSHandler) List(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	includeHidden := strings.EqualFold(c.Query("include_hidden"), "true")
	resp, err := fs.ListDir(c.Request.Context(), p, fsops.ListDirOptions{IncludeHidden: includeHidden})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, resp)
}

func (h *FSHandler) Stat(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	entry, err := fs.Stat(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, entry)
}

func (h *FSHandler) Mkdir(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	if err := fs.MkdirAll(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *FSHandler) Remove(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	if err := fs.Remove(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *FSHandler) RemoveAll(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	if err := fs.RemoveAll(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *FSHandler) Rename(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "from and to are required"})
		return
	}
	if err := fs.Rename(c.Request.Context(), from, to); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *FSHandler) Copy(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "from and to are required"})
		return
	}
	if err := fs.Copy(c.Request.Context(), from, to); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *FSHandler) Download(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	rc, err := fs.OpenRead(c.Request.Context(), p)
	if err != nil {
		fail(c, err)
		return
	}
	defer func() { _ = rc.Close() }()

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", `attachment; filename="`+sanitizeFilename(p)+`"`)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.logger.Warn("download stream interrupted", "path", p, "error", err)
	}
}

func (h *FSHandler) Upload(c *gin.Context) {
	fs, ok2 := h.fsFor(c)
	if !ok2 {
		return
	}
	p := c.Query("path")
	overwrite := strings.EqualFold(c.Query("overwrite"), "true")
	if strings.TrimSpace(p) == "" {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "path is required"})
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.Response{Code: 400, Message: "missing multipart field 'file'"})
		return
	}
	defer func() { _ = file.Close() }()

	if strings.HasSuffix(p, "/") {
		p = p + header.Filename
	}

	wc, err := fs.OpenWrite(c.Request.Context(), p, fsops.OpenWriteOptions{Overwrite: overwrite})
	if err != nil {
		fail(c, err)
		return
	}
	if _, err := io.Copy(wc, file); err != nil {
		_ = wc.Close()
		fail(c, err)
		return
	}
	if err := wc.Close(); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, `"`, "")
	name = strings.ReplaceAll(name, `\`, "_")
	if name == "" {
		return "download"
	}
	return name
}
