package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSSource receives encoded frames (JPEG or PNG) as binary WebSocket messages.
// Only the newest undelivered frame is kept; older ones are dropped.
type WSSource struct {
	url    string
	logger *slog.Logger

	conn   *websocket.Conn
	frames chan Frame
	done   chan struct{}
	err    atomic.Value // error

	seq       atomic.Uint64
	dropped   atomic.Uint64
	closeOnce sync.Once
}

// DialWS connects to a frame feed at url and starts receiving.
func DialWS(ctx context.Context, url string, logger *slog.Logger) (*WSSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("frame feed connect failed: %w", err)
	}

	s := &WSSource{
		url:    url,
		logger: logger.With("component", "camera.ws", "url", url),
		conn:   conn,
		frames: make(chan Frame, 1),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	s.logger.Info("frame feed connected")
	return s, nil
}

func (s *WSSource) readLoop() {
	defer close(s.done)
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.err.Store(err)
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("frame feed read failed", "error", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			s.logger.Debug("undecodable frame skipped", "bytes", len(data), "error", err)
			continue
		}
		frame := NewFrame(img, s.seq.Add(1), nil)

		// Replace any frame the consumer has not picked up yet.
		select {
		case old := <-s.frames:
			old.Release()
			s.dropped.Add(1)
		default:
		}
		select {
		case s.frames <- frame:
		default:
		}
		s.logger.Debug("frame received", "seq", frame.Seq, "format", format)
	}
}

// Read returns the newest frame, waiting for one if necessary.
func (s *WSSource) Read(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.frames:
		return f, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-s.done:
		// Drain a frame that arrived just before the feed ended.
		select {
		case f := <-s.frames:
			return f, nil
		default:
		}
		if err, ok := s.err.Load().(error); ok && err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrSourceClosed, err)
		}
		return Frame{}, ErrSourceClosed
	}
}

// Dropped returns how many frames were replaced before being read.
func (s *WSSource) Dropped() uint64 {
	return s.dropped.Load()
}

// Close disconnects from the feed.
func (s *WSSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
		<-s.done
	})
	return err
}
