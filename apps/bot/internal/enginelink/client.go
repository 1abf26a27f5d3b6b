// Package enginelink talks to the external spades engine over a websocket.
// Client implements spades.Engine; each game it creates is a remote handle
// that forwards actions and snapshot queries to the engine.
package enginelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"spadesbot/apps/bot/internal/logging"
)

const (
	readLimit    = 1 << 20
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 64
)

var ErrClosed = errors.New("engine link closed")

// Client keeps one websocket to the engine and redials lazily after the
// connection drops. Requests are matched to responses by id.
type Client struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	log     *logrus.Entry

	mu     sync.Mutex
	conn   *link
	closed bool
}

type link struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu      sync.Mutex
	pending map[string]chan response
}

func New(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:     url,
		timeout: timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		log:     logging.For("Engine"),
	}
}

// Connect dials the engine now instead of on the first request.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.current(ctx)
	return err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		c.conn.shutdown()
		c.conn = nil
	}
	return nil
}

func (c *Client) current(ctx context.Context) (*link, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		select {
		case <-c.conn.done:
			c.conn = nil
		default:
			return c.conn, nil
		}
	}

	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial engine %s: %w", c.url, err)
	}
	l := &link{
		ws:      ws,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		pending: make(map[string]chan response),
	}
	go l.readPump(c.log)
	go l.writePump()
	c.conn = l
	c.log.Infof("connected to %s", c.url)
	return l, nil
}

// call sends op and decodes the result into out, which may be nil.
func (c *Client) call(ctx context.Context, op, game string, args, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := request{ID: uuid.NewString(), Op: op, Game: game}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode %s args: %w", op, err)
		}
		req.Args = raw
	}
	frame, err := json.Marshal(req)
	if err != nil {
		return err
	}

	l, err := c.current(ctx)
	if err != nil {
		return err
	}
	reply := l.register(req.ID)
	defer l.unregister(req.ID)

	select {
	case l.send <- frame:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case resp := <-reply:
		if !resp.OK {
			return engineError(resp.Error)
		}
		if out == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", op, err)
		}
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("engine %s: %w", op, ctx.Err())
	}
}

func (l *link) register(id string) chan response {
	ch := make(chan response, 1)
	l.mu.Lock()
	l.pending[id] = ch
	l.mu.Unlock()
	return ch
}

func (l *link) unregister(id string) {
	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
}

func (l *link) shutdown() {
	l.once.Do(func() {
		close(l.done)
		l.ws.Close()
	})
}

func (l *link) readPump(log *logrus.Entry) {
	defer l.shutdown()

	l.ws.SetReadLimit(readLimit)
	l.ws.SetReadDeadline(time.Now().Add(pongWait))
	l.ws.SetPongHandler(func(string) error {
		l.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := l.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("read error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var resp response
		if err := json.Unmarshal(message, &resp); err != nil || resp.ID == "" {
			log.Warnf("%v: %q", errUnexpectedFrame, message)
			continue
		}
		l.mu.Lock()
		ch := l.pending[resp.ID]
		l.mu.Unlock()
		if ch == nil {
			log.Debugf("late response %s dropped", resp.ID)
			continue
		}
		select {
		case ch <- resp:
		default:
			log.Warnf("duplicate response %s dropped", resp.ID)
		}
	}
}

func (l *link) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		l.shutdown()
	}()

	for {
		select {
		case frame := <-l.send:
			l.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			l.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-l.done:
			return
		}
	}
}
