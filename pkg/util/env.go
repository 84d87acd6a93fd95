package util

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// LoadEnv 按环境加载 .env 文件：先 .env.<env>，再 .env，已存在的环境变量不会被覆盖
func LoadEnv(env string) error {
	files := make([]string, 0, 2)
	if env != "" {
		if name := fmt.Sprintf(".env.%s", env); fileExists(name) {
			files = append(files, name)
		}
	}
	if fileExists(".env") {
		files = append(files, ".env")
	}
	if len(files) == 0 {
		return fmt.Errorf("no .env file found for env %q", env)
	}
	return godotenv.Load(files...)
}

func fileExists(name string) bool {
	st, err := os.Stat(name)
	return err == nil && !st.IsDir()
}

// GetEnv 读取字符串环境变量
func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetEnvOr 读取字符串环境变量，为空时返回默认值
func GetEnvOr(key, def string) string {
	if v := GetEnv(key); v != "" {
		return v
	}
	return def
}

// GetIntEnv 读取整型环境变量，无法解析时返回 0
func GetIntEnv(key string) int64 {
	return cast.ToInt64(GetEnv(key))
}

// GetBoolEnv 读取布尔环境变量（true/1/yes）
func GetBoolEnv(key string) bool {
	v := strings.ToLower(GetEnv(key))
	if v == "yes" || v == "y" {
		return true
	}
	return cast.ToBool(v)
}

// GetDurationEnv 读取时长环境变量，支持 "5s" 形式，纯数字按秒处理
func GetDurationEnv(key string, def time.Duration) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return def
	}
	if n, err := cast.ToInt64E(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := cast.ToDurationE(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetListEnv 读取逗号分隔的列表
func GetListEnv(key string) []string {
	v := GetEnv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
