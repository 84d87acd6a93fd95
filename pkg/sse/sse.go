package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ResQWave/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Client struct {
	id     string
	groups map[string]bool
	ch     chan []byte
	done   chan struct{}
}

// Hub 只读的实时镜像：与 websocket hub 发布相同的事件，客户端按组订阅
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	groups   map[string]map[string]bool // group -> clientID set
	interval time.Duration
	retryMs  int
	seq      atomic.Int64
	closed   chan struct{}
	once     sync.Once
}

func NewHub(interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{
		clients:  make(map[string]*Client),
		groups:   make(map[string]map[string]bool),
		interval: interval,
		retryMs:  5000,
		closed:   make(chan struct{}),
	}
}

func (h *Hub) AddClient(id string, groups ...string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &Client{id: id, groups: make(map[string]bool), ch: make(chan []byte, 64), done: make(chan struct{})}
	h.clients[id] = c
	for _, g := range groups {
		c.groups[g] = true
		if h.groups[g] == nil {
			h.groups[g] = make(map[string]bool)
		}
		h.groups[g][id] = true
	}
	return c
}

func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	close(c.done)
	for g := range c.groups {
		delete(h.groups[g], id)
		if len(h.groups[g]) == 0 {
			delete(h.groups, g)
		}
	}
	delete(h.clients, id)
}

// Publish 以命名事件推送到组，缓冲区满的客户端直接跳过
func (h *Hub) Publish(group, event string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := formatEvent(h.seq.Add(1), event, b)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.groups[group] {
		c := h.clients[id]
		if c == nil {
			continue
		}
		select {
		case c.ch <- msg:
		default:
			metrics.RecordDropped("sse_slow_consumer")
			logrus.Debugf("SSE 客户端 %s 缓冲区已满，事件 %s 被丢弃", id, event)
		}
	}
	return nil
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close 通知所有流结束
func (h *Hub) Close() {
	h.once.Do(func() { close(h.closed) })
}

func formatEvent(id int64, event string, data []byte) []byte {
	return []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", id, event, data))
}

// Serve 建立事件流，groups 为订阅的组
func (h *Hub) Serve(c *gin.Context, groups ...string) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	clientID := uuid.NewString()
	client := h.AddClient(clientID, groups...)
	defer h.RemoveClient(clientID)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, "retry: %d\n\n", h.retryMs)
	flusher.Flush()

	ping := time.NewTicker(h.interval)
	defer ping.Stop()

	for {
		select {
		case <-client.done:
			return
		case <-h.closed:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(c.Writer, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case msg := <-client.ch:
			_, _ = c.Writer.Write(msg)
			flusher.Flush()
		}
	}
}

// ParseGroups 解析 ?group=a,b 形式的订阅
func ParseGroups(raw string) []string {
	var out []string
	for _, g := range strings.Split(raw, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}
