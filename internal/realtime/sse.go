package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cinema-booking/internal/data/entity"
	"cinema-booking/internal/inventory"
)

var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// SSEConn writes Server-Sent Events. Headers are sent on the first write so
// an attach that fails early can still answer with a normal JSON error.
type SSEConn struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func NewSSEConn(w http.ResponseWriter) (*SSEConn, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	return &SSEConn{w: w, flusher: f}, nil
}

// Started reports whether the stream headers went out.
func (c *SSEConn) Started() bool { return c.started }

func (c *SSEConn) start() {
	if c.started {
		return
	}
	h := c.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.w.WriteHeader(http.StatusOK)
	c.started = true
}

func (c *SSEConn) write(ctx context.Context, frame string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.start()
	if _, err := fmt.Fprint(c.w, frame); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *SSEConn) SendSnapshot(ctx context.Context, snap *inventory.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.write(ctx, fmt.Sprintf("id: %d\nevent: snapshot\ndata: %s\n\n", snap.Seq, data))
}

func (c *SSEConn) SendEvent(ctx context.Context, ev entity.SeatEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.write(ctx, fmt.Sprintf("id: %d\nevent: seat\ndata: %s\n\n", ev.Seq, data))
}

func (c *SSEConn) Heartbeat(ctx context.Context) error {
	return c.write(ctx, ": ping\n\n")
}
