package websocket

import (
	"errors"
	"net/http"
	"time"

	"ResQWave/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Handler WebSocket HTTP处理器
type Handler struct {
	hub      *Hub
	secret   string
	upgrader websocket.Upgrader
}

// NewHandler 创建新的WebSocket处理器，secret 用于校验 JWT
func NewHandler(hub *Hub, secret string) *Handler {
	return &Handler{
		hub:      hub,
		secret:   secret,
		upgrader: newUpgrader(hub.config),
	}
}

// newUpgrader 根据配置创建WebSocket升级器
func newUpgrader(cfg *Config) websocket.Upgrader {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return websocket.Upgrader{
		ReadBufferSize:    cfg.ReadBufferSize,
		WriteBufferSize:   cfg.WriteBufferSize,
		EnableCompression: cfg.EnableCompression,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}
}

// RegisterRoutes 统一注册路由
func RegisterRoutes(r gin.IRoutes, handler *Handler) {
	r.GET(RouteWebSocket, handler.HandleWebSocket)
	r.GET(RouteWebSocketStats, handler.GetStats)
	r.GET(RouteWebSocketHealth, handler.HealthCheck)
}

// HandleWebSocket 升级前完成认证：缺少 token 返回 401，无效 token 返回 403
func (h *Handler) HandleWebSocket(c *gin.Context) {
	claims, err := middleware.ParseToken(h.secret, middleware.TokenFromRequest(c.Request))
	if errors.Is(err, middleware.ErrTokenMissing) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Authentication required"})
		return
	}
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.Errorf("WebSocket升级失败: %v", err)
		return
	}

	who := Identity{ID: claims.ID, Role: claims.Role, Name: claims.Name}
	connection := newConnection(h.hub, conn, who)

	var groups []string
	if who.Role == middleware.RoleAdmin || who.Role == middleware.RoleDispatcher {
		groups = append(groups, GroupAlerts)
	}
	if !h.hub.register(connection, groups...) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "connection limit reached"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go connection.writePump()
	h.hub.reply(connection, Message{
		Type: MessageTypeConnected,
		Data: gin.H{"connectionId": connection.ID, "groups": groups},
	})
	go connection.readPump()
}

// GetStats 获取WebSocket统计信息
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":              h.hub.Stats(),
		"max_connections":    h.hub.config.MaxConnections,
		"heartbeat_interval": h.hub.config.HeartbeatInterval.String(),
		"connection_timeout": h.hub.config.ConnectionTimeout.String(),
		"message_queue_size": h.hub.config.MessageQueueSize,
		"broadcast_workers":  h.hub.config.BroadcastWorkerCount,
	})
}

// HealthCheck WebSocket健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	if err := h.hub.ctx.Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"details": err.Error(),
		})
		return
	}

	total := h.hub.GetConnectionCount()
	limit := h.hub.config.MaxConnections
	status := "healthy"
	if total >= limit*9/10 { // 90%以上认为警告
		status = "warning"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            status,
		"total_connections": total,
		"max_connections":   limit,
		"connection_usage":  float64(total) / float64(limit) * 100,
		"timestamp":         time.Now().Unix(),
	})
}
