package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const writeWait = 10 * time.Second

func newConnection(hub *Hub, conn *websocket.Conn, who Identity) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		Identity: who,
		Conn:     conn,
		Send:     make(chan []byte, hub.config.MessageBufferSize),
		Hub:      hub,
		groups:   make(map[string]struct{}),
	}
}

// readPump 读取消息的协程，退出时注销连接
func (c *Connection) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(int64(c.Hub.config.MaxMessageSize))
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ConnectionTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		return c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ConnectionTimeout))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket读取错误: %v", err)
			}
			return
		}
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.Hub.config.ConnectionTimeout))
		c.handleMessage(message)
	}
}

// writePump 发送消息的协程，每条消息单独一帧
func (c *Connection) writePump() {
	interval := c.Hub.config.HeartbeatInterval
	if interval <= 0 {
		interval = 25 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) touch() {
	c.lastPing.Store(time.Now().UnixNano())
}

// handleMessage 处理接收到的消息
func (c *Connection) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.Hub.reply(c, Message{Type: MessageTypeError, Data: "invalid message"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.Hub.reply(c, Message{Type: MessageTypePong, ID: msg.ID})
	case MessageTypeTerminalJoin:
		c.handleTerminal(msg, true)
	case MessageTypeTerminalLeave:
		c.handleTerminal(msg, false)
	case MessageTypeAlertTrigger, MessageTypeAlertSimulate:
		c.handleTrigger(msg)
	default:
		logrus.Warnf("未知的消息类型: %s", msg.Type)
	}
}

type terminalPayload struct {
	TerminalID string `json:"terminalId"`
}

// handleTerminal 加入或离开终端广播组
func (c *Connection) handleTerminal(msg inboundMessage, join bool) {
	var p terminalPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil || strings.TrimSpace(p.TerminalID) == "" {
		c.Hub.reply(c, Message{Type: MessageTypeError, ID: msg.ID, Data: "terminalId is required"})
		return
	}

	group := TerminalGroup(strings.TrimSpace(p.TerminalID))
	reply := MessageTypeTerminalJoined
	if join {
		c.Hub.Join(c, group)
	} else {
		c.Hub.Leave(c, group)
		reply = MessageTypeTerminalLeft
	}
	c.Hub.reply(c, Message{Type: reply, ID: msg.ID, Data: p})
}

// handleTrigger 调用注入的触发函数并回执
func (c *Connection) handleTrigger(msg inboundMessage) {
	c.Hub.mu.RLock()
	trigger := c.Hub.trigger
	c.Hub.mu.RUnlock()

	ack := func(a Ack) {
		c.Hub.reply(c, Message{Type: MessageTypeAck, ID: msg.ID, Data: a})
	}
	if trigger == nil {
		ack(Ack{OK: false, Error: "alert trigger is not available"})
		return
	}

	var req TriggerRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		ack(Ack{OK: false, Error: "invalid payload"})
		return
	}
	if req.TerminalID == "" {
		ack(Ack{OK: false, Error: "terminalId is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Hub.ctx, c.Hub.config.TriggerTimeout)
	defer cancel()

	alertID, err := trigger(ctx, c.Identity, req)
	if err != nil {
		ack(Ack{OK: false, Error: err.Error()})
		return
	}
	ack(Ack{OK: true, AlertID: alertID})
}
