package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "500ms"、"2s" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// ServerConfig 描述监听地址、请求队列与读取策略，整个进程共享一份。
type ServerConfig struct {
	ListenHost       string   `mapstructure:"ListenHost"`
	ListenPort       int      `mapstructure:"ListenPort"`
	QueueCapacity    int      `mapstructure:"QueueCapacity"`
	ReadChunkSize    int      `mapstructure:"ReadChunkSize"`
	BodyReadWait     Duration `mapstructure:"BodyReadWait"`
	BodyReadAttempts int      `mapstructure:"BodyReadAttempts"`
	MaxBodyBytes     int      `mapstructure:"MaxBodyBytes"`
	NotFoundMessage  string   `mapstructure:"NotFoundMessage"`
	NotFoundStatus   int      `mapstructure:"NotFoundStatus"`
}

// LogConfig 控制控制台/文件日志的级别与轮转参数。
type LogConfig struct {
	LogLevel      string `mapstructure:"LogLevel"`
	LogToFile     bool   `mapstructure:"LogToFile"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`
}

// CORSConfig 对应 [CORS] 表；Enabled 时 CLI 会注册 CORS 中间件并把非空字段作为覆盖项。
type CORSConfig struct {
	Enabled      bool   `mapstructure:"Enabled"`
	AllowOrigin  string `mapstructure:"AllowOrigin"`
	AllowMethods string `mapstructure:"AllowMethods"`
	AllowHeaders string `mapstructure:"AllowHeaders"`
	MaxAge       string `mapstructure:"MaxAge"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Server ServerConfig `mapstructure:",squash"`
	Log    LogConfig    `mapstructure:",squash"`
	CORS   CORSConfig   `mapstructure:"CORS"`
}

// Addr 返回 net.Listen 可直接使用的 host:port。
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.ListenHost, strconv.Itoa(s.ListenPort))
}

// Overrides 输出需要覆盖默认 CORS 头的键值对，空字段不参与覆盖。
func (c CORSConfig) Overrides() map[string]string {
	out := map[string]string{}
	add := func(key, value string) {
		if v := strings.TrimSpace(value); v != "" {
			out[key] = v
		}
	}
	add("Access-Control-Allow-Origin", c.AllowOrigin)
	add("Access-Control-Allow-Methods", c.AllowMethods)
	add("Access-Control-Allow-Headers", c.AllowHeaders)
	add("Access-Control-Max-Age", c.MaxAge)
	return out
}
