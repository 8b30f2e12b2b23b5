package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖配置时使用的前缀，例如 PICKLES_LISTENPORT=9090。
const EnvPrefix = "PICKLES"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
// path 为空时仅使用默认值与环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyServerDefaults(&cfg.Server)
	applyLogDefaults(&cfg.Log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default 返回不读取任何文件时的配置，便于测试与嵌入式调用。
func Default() *Config {
	cfg := &Config{}
	applyServerDefaults(&cfg.Server)
	applyLogDefaults(&cfg.Log)
	cfg.Log.LogLevel = "info"
	cfg.Log.LogMaxSize = 100
	cfg.Log.LogMaxBackups = 10
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenHost", "")
	v.SetDefault("ListenPort", 8080)
	v.SetDefault("QueueCapacity", 10)
	v.SetDefault("ReadChunkSize", 4096)
	v.SetDefault("BodyReadWait", "1s")
	v.SetDefault("BodyReadAttempts", 5)
	v.SetDefault("MaxBodyBytes", DefaultMaxBodyBytes)
	v.SetDefault("NotFoundMessage", DefaultNotFoundMessage)
	v.SetDefault("NotFoundStatus", 404)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogToFile", false)
	v.SetDefault("LogFilePath", "./log.txt")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", false)
	v.SetDefault("CORS.Enabled", false)
	v.SetDefault("CORS.AllowOrigin", "")
	v.SetDefault("CORS.AllowMethods", "")
	v.SetDefault("CORS.AllowHeaders", "")
	v.SetDefault("CORS.MaxAge", "")
}

// DefaultNotFoundMessage 是未匹配路由时返回的默认正文。
const DefaultNotFoundMessage = "404: Route not found"

// DefaultMaxBodyBytes 是未配置 MaxBodyBytes 时允许的最大正文字节数。
const DefaultMaxBodyBytes = 10 << 20

func applyServerDefaults(s *ServerConfig) {
	if s.ListenPort == 0 {
		s.ListenPort = 8080
	}
	if s.QueueCapacity == 0 {
		s.QueueCapacity = 10
	}
	if s.ReadChunkSize == 0 {
		s.ReadChunkSize = 4096
	}
	if s.BodyReadWait.DurationValue() == 0 {
		s.BodyReadWait = Duration(time.Second)
	}
	if s.BodyReadAttempts == 0 {
		s.BodyReadAttempts = 5
	}
	if s.MaxBodyBytes == 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.NotFoundMessage == "" {
		s.NotFoundMessage = DefaultNotFoundMessage
	}
	if s.NotFoundStatus == 0 {
		s.NotFoundStatus = 404
	}
}

func applyLogDefaults(l *LogConfig) {
	if strings.TrimSpace(l.LogLevel) == "" {
		l.LogLevel = "info"
	}
	if l.LogFilePath == "" {
		l.LogFilePath = "./log.txt"
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
