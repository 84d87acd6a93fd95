package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ResQWave/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var ErrHubClosed = errors.New("websocket hub closed")

// Message 出站消息结构
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	ID        string      `json:"id,omitempty"`
	Group     string      `json:"group,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// inboundMessage 客户端消息，id 用于关联 ack
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	ID   string          `json:"id"`
}

// Ack 告警触发回执
type Ack struct {
	OK      bool   `json:"ok"`
	AlertID string `json:"alertId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TriggerRequest 通过 socket 触发告警的请求
type TriggerRequest struct {
	TerminalID     string `json:"terminalId"`
	AlertType      string `json:"alertType"`
	Status         string `json:"status,omitempty"`
	TerminalStatus string `json:"terminalStatus,omitempty"`
}

// Identity 连接身份
type Identity struct {
	ID   string
	Role string
	Name string
}

// TriggerFunc 创建告警并返回告警ID
type TriggerFunc func(ctx context.Context, who Identity, req TriggerRequest) (string, error)

// Connection 表示一个WebSocket连接
type Connection struct {
	ID       string
	Identity Identity
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
	lastPing atomic.Int64
	alive    atomic.Bool
	groups   map[string]struct{} // 由 Hub.mu 保护
}

type publishJob struct {
	group string
	event string
	data  []byte
}

// Hub 管理连接与广播组
type Hub struct {
	connections      map[string]*Connection
	groupConnections map[string]map[string]*Connection
	mu               sync.RWMutex

	jobs    chan publishJob
	config  *Config
	trigger TriggerFunc

	connectionCount atomic.Int64
	published       atomic.Int64
	dropped         atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub 创建并启动Hub
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BroadcastWorkerCount <= 0 {
		config.BroadcastWorkerCount = 1
	}
	if config.MessageQueueSize <= 0 {
		config.MessageQueueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		connections:      make(map[string]*Connection),
		groupConnections: make(map[string]map[string]*Connection),
		jobs:             make(chan publishJob, config.MessageQueueSize),
		config:           config,
		ctx:              ctx,
		cancel:           cancel,
	}

	for i := 0; i < config.BroadcastWorkerCount; i++ {
		hub.wg.Add(1)
		go hub.broadcastWorker()
	}
	hub.wg.Add(1)
	go hub.run()
	return hub
}

// SetTrigger 注入 alert:trigger 的处理函数
func (h *Hub) SetTrigger(fn TriggerFunc) {
	h.mu.Lock()
	h.trigger = fn
	h.mu.Unlock()
}

// Publish 投递事件到广播组，不阻塞调用方；队列满时丢弃
func (h *Hub) Publish(group, event string, payload interface{}) error {
	if h.ctx.Err() != nil {
		return ErrHubClosed
	}
	data, err := json.Marshal(Message{
		Type:      event,
		Data:      payload,
		Group:     group,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	select {
	case h.jobs <- publishJob{group: group, event: event, data: data}:
		h.published.Add(1)
		metrics.RecordPublished(event)
	default:
		h.dropped.Add(1)
		metrics.RecordDropped("queue_full")
		logrus.Warnf("发布队列已满，事件 %s -> %s 被丢弃", event, group)
	}
	return nil
}

// run 心跳检查
func (h *Hub) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.checkHeartbeats()
		}
	}
}

// broadcastWorker 广播worker
func (h *Hub) broadcastWorker() {
	defer h.wg.Done()
	for {
		select {
		case <-h.ctx.Done():
			return
		case job := <-h.jobs:
			h.sendToGroup(job)
		}
	}
}

// register 注册连接，返回 false 表示已达上限
func (h *Hub) register(conn *Connection, groups ...string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connectionCount.Load() >= h.config.MaxConnections {
		logrus.Warnf("达到最大连接数限制: %d", h.config.MaxConnections)
		return false
	}

	conn.alive.Store(true)
	conn.lastPing.Store(time.Now().UnixNano())
	h.connections[conn.ID] = conn
	h.connectionCount.Add(1)
	for _, g := range groups {
		h.joinLocked(conn, g)
	}

	logrus.Infof("WebSocket连接已注册: %s, 用户: %s(%s), 当前连接数: %d",
		conn.ID, conn.Identity.ID, conn.Identity.Role, h.connectionCount.Load())
	return true
}

// unregister 注销连接并清理所在的组
func (h *Hub) unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.connections[conn.ID]; !exists {
		return
	}
	delete(h.connections, conn.ID)
	h.connectionCount.Add(-1)

	for group := range conn.groups {
		h.leaveLocked(conn, group)
	}
	conn.alive.Store(false)
	close(conn.Send)

	logrus.Infof("WebSocket连接已注销: %s, 当前连接数: %d", conn.ID, h.connectionCount.Load())
}

// Join 将连接加入组
func (h *Hub) Join(conn *Connection, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; ok {
		h.joinLocked(conn, group)
	}
}

// Leave 将连接移出组
func (h *Hub) Leave(conn *Connection, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, group)
}

func (h *Hub) joinLocked(conn *Connection, group string) {
	if h.groupConnections[group] == nil {
		h.groupConnections[group] = make(map[string]*Connection)
	}
	h.groupConnections[group][conn.ID] = conn
	conn.groups[group] = struct{}{}
}

func (h *Hub) leaveLocked(conn *Connection, group string) {
	delete(conn.groups, group)
	if members := h.groupConnections[group]; members != nil {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.groupConnections, group)
		}
	}
}

// sendToGroup 发送消息给特定组
func (h *Hub) sendToGroup(job publishJob) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for connID, conn := range h.groupConnections[job.group] {
		if conn.alive.Load() {
			h.trySend(conn, job.data, func() {
				logrus.Warnf("组 %s 的连接 %s 发送缓冲区已满，事件 %s 被丢弃", job.group, connID, job.event)
			})
		}
	}
}

// reply 直接回复某个连接
func (h *Hub) reply(conn *Connection, msg Message) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("消息序列化失败: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.connections[conn.ID]; ok {
		h.trySend(conn, data, func() { logrus.Warnf("连接 %s 发送缓冲区已满", conn.ID) })
	}
}

// trySend 背压策略：缓冲区满则丢弃，可选断开慢连接。调用方持有 h.mu 读锁
func (h *Hub) trySend(conn *Connection, data []byte, onDrop func()) {
	select {
	case conn.Send <- data:
	default:
		h.dropped.Add(1)
		metrics.RecordDropped("slow_consumer")
		onDrop()
		if h.config.CloseOnBackpressure {
			conn.Conn.Close()
		}
	}
}

// checkHeartbeats 关闭超时的连接，readPump 会随之退出并注销
func (h *Hub) checkHeartbeats() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deadline := time.Now().Add(-h.config.ConnectionTimeout).UnixNano()
	for _, conn := range h.connections {
		if conn.lastPing.Load() < deadline {
			logrus.Warnf("连接 %s 心跳超时，准备关闭", conn.ID)
			conn.alive.Store(false)
			conn.Conn.Close()
		}
	}
}

// GetConnectionCount 获取当前连接数
func (h *Hub) GetConnectionCount() int64 {
	return h.connectionCount.Load()
}

// GetGroupConnections 获取组的连接数
func (h *Hub) GetGroupConnections(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groupConnections[group])
}

// Stats 运行统计
type Stats struct {
	Connections int64          `json:"connections"`
	Groups      map[string]int `json:"groups"`
	Published   int64          `json:"published"`
	Dropped     int64          `json:"dropped"`
	QueueLength int            `json:"queueLength"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	groups := make(map[string]int, len(h.groupConnections))
	for g, members := range h.groupConnections {
		groups[g] = len(members)
	}
	h.mu.RUnlock()

	return Stats{
		Connections: h.connectionCount.Load(),
		Groups:      groups,
		Published:   h.published.Load(),
		Dropped:     h.dropped.Load(),
		QueueLength: len(h.jobs),
	}
}

// Close 关闭Hub
func (h *Hub) Close() {
	h.cancel()

	// 关闭所有连接
	h.mu.RLock()
	for _, conn := range h.connections {
		conn.Conn.Close()
	}
	h.mu.RUnlock()

	h.wg.Wait()
	logrus.Info("WebSocket Hub已关闭")
}
