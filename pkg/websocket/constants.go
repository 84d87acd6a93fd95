package websocket

// 入站消息类型
const (
	MessageTypePing          = "ping"
	MessageTypeTerminalJoin  = "terminal:join"
	MessageTypeTerminalLeave = "terminal:leave"
	MessageTypeAlertTrigger  = "alert:trigger"
	MessageTypeAlertSimulate = "alert:simulate"
)

// 出站消息类型
const (
	MessageTypePong           = "pong"
	MessageTypeConnected      = "connected"
	MessageTypeTerminalJoined = "terminal:joined"
	MessageTypeTerminalLeft   = "terminal:left"
	MessageTypeAck            = "ack"
	MessageTypeError          = "error"
)

// 广播组
const (
	GroupAlerts         = "alerts:all"
	terminalGroupPrefix = "terminal:"
)

// TerminalGroup 终端专属广播组
func TerminalGroup(terminalID string) string {
	return terminalGroupPrefix + terminalID
}

const (
	// 环境变量配置键
	EnvWebSocketMaxConnections      = "WEBSOCKET_MAX_CONNECTIONS"
	EnvWebSocketHeartbeatInterval   = "WEBSOCKET_HEARTBEAT_INTERVAL"
	EnvWebSocketConnectionTimeout   = "WEBSOCKET_CONNECTION_TIMEOUT"
	EnvWebSocketMessageBufferSize   = "WEBSOCKET_MESSAGE_BUFFER_SIZE"
	EnvWebSocketMessageQueueSize    = "WEBSOCKET_MESSAGE_QUEUE_SIZE"
	EnvWebSocketEnableCompression   = "WEBSOCKET_ENABLE_COMPRESSION"
	EnvWebSocketBroadcastWorkers    = "WEBSOCKET_BROADCAST_WORKERS"
	EnvWebSocketReadBufferSize      = "WEBSOCKET_READ_BUFFER_SIZE"
	EnvWebSocketWriteBufferSize     = "WEBSOCKET_WRITE_BUFFER_SIZE"
	EnvWebSocketMaxMessageSize      = "WEBSOCKET_MAX_MESSAGE_SIZE"
	EnvWebSocketCloseOnBackpressure = "WEBSOCKET_CLOSE_ON_BACKPRESSURE"
	EnvWebSocketTriggerTimeout      = "WEBSOCKET_TRIGGER_TIMEOUT"
	EnvWebSocketAllowedOrigins      = "WEBSOCKET_ALLOWED_ORIGINS"

	// 路由路径
	RouteWebSocket       = "/ws"
	RouteWebSocketStats  = "/ws/stats"
	RouteWebSocketHealth = "/ws/health"
)
