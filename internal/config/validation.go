package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	s := c.Server
	if s.ListenPort < 0 || s.ListenPort > 65535 {
		return newFieldError("Server.ListenPort", "必须在 0-65535")
	}
	if s.QueueCapacity <= 0 {
		return newFieldError("Server.QueueCapacity", "必须大于 0")
	}
	if s.ReadChunkSize <= 0 {
		return newFieldError("Server.ReadChunkSize", "必须大于 0")
	}
	if s.BodyReadWait.DurationValue() <= 0 {
		return newFieldError("Server.BodyReadWait", "必须大于 0")
	}
	if s.BodyReadAttempts <= 0 {
		return newFieldError("Server.BodyReadAttempts", "必须大于 0")
	}
	if s.MaxBodyBytes < 0 {
		return newFieldError("Server.MaxBodyBytes", "不能为负数")
	}
	if s.NotFoundStatus < 400 || s.NotFoundStatus > 499 {
		return newFieldError("Server.NotFoundStatus", "必须是 4xx 状态码")
	}

	l := c.Log
	if _, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(l.LogLevel))); err != nil {
		return newFieldError("Log.LogLevel", "仅支持 debug/info/warn/error/fatal")
	}
	if l.LogToFile && strings.TrimSpace(l.LogFilePath) == "" {
		return newFieldError("Log.LogFilePath", "启用文件日志时不能为空")
	}
	if l.LogMaxSize < 0 {
		return newFieldError("Log.LogMaxSize", "不能为负数")
	}
	if l.LogMaxBackups < 0 {
		return newFieldError("Log.LogMaxBackups", "不能为负数")
	}

	if strings.ContainsAny(c.CORS.AllowOrigin, "\r\n") {
		return newFieldError("CORS.AllowOrigin", "不允许包含换行")
	}
	return nil
}
