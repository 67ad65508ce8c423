// Package termbridge bridges an interactive PTY-backed shell over a leased
// SSH channel to a WebSocket client, adapted from the teacher's
// pkg/service/terminal_service.go SSH branch: that code built its own
// *ssh.Client/*ssh.Session per terminal. Here the channel itself comes from
// pool.ChannelLease, so the pty-req/shell/window-change requests are sent
// directly against the raw ssh.Channel (RFC 4254 §6.2), the way
// golang.org/x/crypto/ssh's own Session type does internally.
package termbridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/ssh"

	"github.com/webssh/sshgate/pkg/pool"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 32 * 1024
)

// ptyRequestMsg is RFC 4254 §6.2's pty-req payload, replicated here because
// golang.org/x/crypto/ssh keeps its equivalent unexported inside Session.
type ptyRequestMsg struct {
	Term     string
	Columns  uint32
	Rows     uint32
	Width    uint32
	Height   uint32
	Modelist string
}

type ptyWindowChangeMsg struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

// inboundMessage is the client-to-server WebSocket envelope, matching the
// teacher's WebSocketMessage{Type, Data} shape.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type resizePayload struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Bridge owns one terminal: a leased channel on one side, a WebSocket
// connection on the other.
type Bridge struct {
	lease  *pool.ChannelLease
	ws     *websocket.Conn
	logger *slog.Logger

	writeMu sync.Mutex
}

// New starts the shell on lease's channel (pty-req sized rows/cols, then
// shell) and returns a Bridge ready to Run. The caller owns ws and lease;
// Run takes over both until either side closes.
func New(lease *pool.ChannelLease, ws *websocket.Conn, termType string, rows, cols int, logger *slog.Logger) (*Bridge, error) {
	if termType == "" {
		termType = "xterm-256color"
	}
	payload := ssh.Marshal(ptyRequestMsg{
		Term:    termType,
		Columns: uint32(cols),
		Rows:    uint32(rows),
	})
	if _, err := lease.SendRequest("pty-req", true, payload); err != nil {
		return nil, err
	}
	if _, err := lease.SendRequest("shell", true, nil); err != nil {
		return nil, err
	}
	return &Bridge{lease: lease, ws: ws, logger: logger}, nil
}

// Run pumps data both directions until the channel or the websocket closes.
// It blocks until the session ends.
func (b *Bridge) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go b.drainRequests()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		b.pumpChannelToWS(ctx)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		b.pumpWSToChannel(ctx)
	}()
	go func() {
		<-ctx.Done()
		_ = b.lease.Close()
		_ = b.ws.Close()
	}()
	wg.Wait()
}

// drainRequests discards channel requests the remote sends (exit-status and
// friends), replying false to anything that wants a reply, exactly as
// golang.org/x/crypto/ssh's own discard loop does for channels it doesn't
// otherwise service.
func (b *Bridge) drainRequests() {
	for req := range b.lease.Requests {
		if req.WantReply {
			_ = req.Reply(false, nil)
		}
	}
}

func (b *Bridge) pumpChannelToWS(ctx context.Context) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := b.lease.Read(buf)
		if n > 0 {
			if werr := b.writeBinary(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				b.logger.Debug("channel read ended", "error", err)
			}
			return
		}
	}
}

func (b *Bridge) pumpWSToChannel(ctx context.Context) {
	b.ws.SetReadLimit(maxMessageSize)
	_ = b.ws.SetReadDeadline(time.Now().Add(pongWait))
	b.ws.SetPongHandler(func(string) error {
		_ = b.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go b.pingLoop(ctx)

	for {
		msgType, data, err := b.ws.ReadMessage()
		if err != nil {
			return
		}
		switch msgType {
		case websocket.BinaryMessage:
			if _, err := b.lease.Write(data); err != nil {
				return
			}
		case websocket.TextMessage:
			b.handleText(data)
		}
	}
}

func (b *Bridge) handleText(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Treat unstructured text frames as raw keystrokes.
		_, _ = b.lease.Write(data)
		return
	}
	switch msg.Type {
	case "input":
		var raw string
		if err := json.Unmarshal(msg.Data, &raw); err == nil {
			_, _ = b.lease.Write([]byte(raw))
		}
	case "resize":
		var size resizePayload
		if err := json.Unmarshal(msg.Data, &size); err == nil {
			b.resize(size.Rows, size.Cols)
		}
	}
}

func (b *Bridge) resize(rows, cols int) {
	payload := ssh.Marshal(ptyWindowChangeMsg{Columns: uint32(cols), Rows: uint32(rows)})
	_, _ = b.lease.SendRequest("window-change", false, payload)
}

func (b *Bridge) writeBinary(p []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	_ = b.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return b.ws.WriteMessage(websocket.BinaryMessage, p)
}

func (b *Bridge) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.writeMu.Lock()
			_ = b.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := b.ws.WriteMessage(websocket.PingMessage, nil)
			b.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
