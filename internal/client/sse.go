package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
)

// Event is one decoded server-sent event. Comment frames (heartbeats) are
// surfaced so the controller's watchdog can count them as liveness.
type Event struct {
	ID      string
	Name    string
	Data    string
	Retry   int
	Comment bool
}

// Reader incrementally decodes server-sent events from a stream.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps r for SSE decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// Next blocks until one complete event (or a comment line) is available.
func (r *Reader) Next() (Event, error) {
	var ev Event
	var data []string
	pending := false

	for {
		line, err := r.br.ReadString('\n')
		if err != nil {
			return Event{}, err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if !pending {
				continue
			}
			ev.Data = strings.Join(data, "\n")
			return ev, nil
		}

		if strings.HasPrefix(line, ":") {
			if pending {
				continue
			}
			return Event{Comment: true, Data: strings.TrimSpace(line[1:])}, nil
		}

		field, value := line, ""
		if i := strings.Index(line, ":"); i >= 0 {
			field = line[:i]
			value = strings.TrimPrefix(line[i+1:], " ")
		}

		switch field {
		case "id":
			ev.ID = value
		case "event":
			ev.Name = value
		case "data":
			data = append(data, value)
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				ev.Retry = ms
			}
		}
		pending = true
	}
}

// StreamConn is one open subscription.
type StreamConn interface {
	// Events yields decoded events; the channel closes on transport error.
	Events() <-chan Event
	Close() error
}

// StreamOpener opens a subscription at a resume cursor.
type StreamOpener interface {
	Open(ctx context.Context, cursor string) (StreamConn, error)
}

// Transport opens SSE subscriptions against the live stream endpoint.
type Transport struct {
	BaseURL string
	Client  *http.Client
}

// NewTransport creates an SSE transport. The HTTP client must not carry a
// global timeout; the stream is long-lived by design.
func NewTransport(baseURL string, client *http.Client) *Transport {
	if client == nil {
		client = &http.Client{}
	}
	return &Transport{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// Open subscribes to the live stream, resuming at cursor when present.
func (t *Transport) Open(ctx context.Context, cursor string) (StreamConn, error) {
	endpoint := t.BaseURL + "/api/v1/stream/live"
	if cursor != "" {
		endpoint += "?cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if cursor != "" {
		req.Header.Set("Last-Event-ID", cursor)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("client: open stream: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("client: open stream: unexpected content type %q", ct)
	}

	conn := &httpConn{
		body:   resp.Body,
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

type httpConn struct {
	body      io.ReadCloser
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

func (c *httpConn) Events() <-chan Event {
	return c.events
}

func (c *httpConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.body.Close()
	})
	return nil
}

func (c *httpConn) readLoop() {
	defer close(c.events)
	reader := NewReader(c.body)
	for {
		ev, err := reader.Next()
		if err != nil {
			return
		}
		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}
