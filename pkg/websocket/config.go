package websocket

import (
	"fmt"
	"time"

	"ResQWave/pkg/util"
)

// Config WebSocket配置
type Config struct {
	// 最大连接数
	MaxConnections int64
	// 心跳间隔
	HeartbeatInterval time.Duration
	// 连接超时时间
	ConnectionTimeout time.Duration
	// 每个连接的发送缓冲区大小
	MessageBufferSize int
	// 读缓冲区大小
	ReadBufferSize int
	// 写缓冲区大小
	WriteBufferSize int
	// 最大入站消息大小
	MaxMessageSize int
	// 是否启用压缩
	EnableCompression bool
	// 发布队列大小，满时丢弃
	MessageQueueSize int
	// 广播worker数量。大于1时同一组内的事件可能乱序
	BroadcastWorkerCount int
	// 慢消费者策略：发送缓冲区满时直接断开
	CloseOnBackpressure bool
	// 单次触发告警的处理超时
	TriggerTimeout time.Duration
	// 允许的 Origin，为空表示不校验
	AllowedOrigins []string
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:       10000,
		HeartbeatInterval:    25 * time.Second,
		ConnectionTimeout:    60 * time.Second,
		MessageBufferSize:    256,
		ReadBufferSize:       1024,
		WriteBufferSize:      1024,
		MaxMessageSize:       4096,
		EnableCompression:    false,
		MessageQueueSize:     1024,
		BroadcastWorkerCount: 1,
		CloseOnBackpressure:  false,
		TriggerTimeout:       10 * time.Second,
	}
}

// LoadConfigFromEnv 从环境变量加载WebSocket配置
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if n := util.GetIntEnv(EnvWebSocketMaxConnections); n > 0 {
		config.MaxConnections = n
	}
	config.HeartbeatInterval = util.GetDurationEnv(EnvWebSocketHeartbeatInterval, config.HeartbeatInterval)
	config.ConnectionTimeout = util.GetDurationEnv(EnvWebSocketConnectionTimeout, config.ConnectionTimeout)
	config.TriggerTimeout = util.GetDurationEnv(EnvWebSocketTriggerTimeout, config.TriggerTimeout)

	if n := util.GetIntEnv(EnvWebSocketMessageBufferSize); n > 0 {
		config.MessageBufferSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketMessageQueueSize); n > 0 {
		config.MessageQueueSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketBroadcastWorkers); n > 0 {
		config.BroadcastWorkerCount = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketReadBufferSize); n > 0 {
		config.ReadBufferSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketWriteBufferSize); n > 0 {
		config.WriteBufferSize = int(n)
	}
	if n := util.GetIntEnv(EnvWebSocketMaxMessageSize); n > 0 {
		config.MaxMessageSize = int(n)
	}
	if util.GetEnv(EnvWebSocketEnableCompression) != "" {
		config.EnableCompression = util.GetBoolEnv(EnvWebSocketEnableCompression)
	}
	if util.GetEnv(EnvWebSocketCloseOnBackpressure) != "" {
		config.CloseOnBackpressure = util.GetBoolEnv(EnvWebSocketCloseOnBackpressure)
	}
	config.AllowedOrigins = util.GetListEnv(EnvWebSocketAllowedOrigins)

	return config
}

// ValidateConfig 验证WebSocket配置
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("配置不能为空")
	}
	if config.MaxConnections <= 0 {
		return fmt.Errorf("最大连接数必须大于0")
	}
	if config.HeartbeatInterval <= 0 || config.ConnectionTimeout <= 0 {
		return fmt.Errorf("心跳间隔与连接超时时间必须大于0")
	}
	// 心跳间隔应该小于连接超时时间
	if config.HeartbeatInterval >= config.ConnectionTimeout {
		return fmt.Errorf("心跳间隔必须小于连接超时时间")
	}
	if config.MessageBufferSize <= 0 || config.MessageQueueSize <= 0 {
		return fmt.Errorf("缓冲区与队列大小必须大于0")
	}
	if config.BroadcastWorkerCount <= 0 {
		return fmt.Errorf("广播worker数量必须大于0")
	}
	if config.ReadBufferSize <= 0 || config.WriteBufferSize <= 0 {
		return fmt.Errorf("读/写缓冲区大小必须大于0")
	}
	if config.MaxMessageSize <= 0 {
		return fmt.Errorf("最大消息大小必须大于0")
	}
	return nil
}
