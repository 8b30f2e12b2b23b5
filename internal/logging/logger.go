package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pickles-http/pickles/internal/config"
)

// Severity 沿用 logrus 的级别定义，只使用 DEBUG/INFO/WARN/ERROR/FATAL 五档。
type Severity = logrus.Level

const (
	Debug = logrus.DebugLevel
	Info  = logrus.InfoLevel
	Warn  = logrus.WarnLevel
	Error = logrus.ErrorLevel
	Fatal = logrus.FatalLevel
)

// ParseSeverity 不区分大小写解析级别名称，无法识别时回退到 INFO。
func ParseSeverity(name string) Severity {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return Debug
	case "INFO":
		return Info
	case "WARN", "WARNING":
		return Warn
	case "ERROR":
		return Error
	case "FATAL":
		return Fatal
	default:
		return Info
	}
}

// SeverityName 输出日志行中使用的大写级别名称。
func SeverityName(level Severity) string {
	switch level {
	case Debug, logrus.TraceLevel:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal, logrus.PanicLevel:
		return "FATAL"
	default:
		return "INFO"
	}
}

// Logger 是只追加的日志汇：每条记录写入控制台，启用文件时同时追加到文件。
// 由 Server 持有并显式传递，不存在进程级单例。
type Logger struct {
	mu      sync.Mutex
	base    *logrus.Logger
	console io.Writer
	file    *lumberjack.Logger
	rotate  config.LogConfig
}

// InitLogger 根据日志配置初始化 Logger；无法识别的级别按 INFO 处理，
// 文件目录不可用时降级为仅控制台输出。
func InitLogger(cfg config.LogConfig) (*Logger, error) {
	return newLogger(cfg, os.Stdout)
}

// NewWithWriter 使用指定的控制台 Writer 构建 Logger，供测试捕获输出。
func NewWithWriter(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	return newLogger(cfg, console)
}

func newLogger(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	base := logrus.New()
	base.SetLevel(ParseSeverity(cfg.LogLevel))
	base.SetFormatter(&LineFormatter{})
	base.SetOutput(console)

	l := &Logger{
		base:    base,
		console: console,
		rotate:  cfg,
	}

	if cfg.LogToFile {
		if openErr := l.openFile(cfg.LogFilePath); openErr != nil {
			l.WithFields(logrus.Fields{
				"action": "logger_fallback",
				"path":   cfg.LogFilePath,
			}).Warn(openErr.Error())
		}
	}
	return l, nil
}

// openFile 替换文件输出；调用方需保证旧文件已关闭。
func (l *Logger) openFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.base.SetOutput(l.console)
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	l.file = &lumberjack.Logger{
		Filename:   path,
		MaxSize:    l.rotate.LogMaxSize,
		MaxBackups: l.rotate.LogMaxBackups,
		Compress:   l.rotate.LogCompress,
		LocalTime:  true,
	}
	l.base.SetOutput(io.MultiWriter(l.console, l.file))
	return nil
}

// Log 以给定级别写入一条记录；FATAL 只记录，不会退出进程。
// 比 FATAL 更严重的级别（logrus 的 PANIC）按 FATAL 记录。
func (l *Logger) Log(level Severity, message string) {
	if level < Fatal {
		level = Fatal
	}
	l.base.Log(level, message)
}

// LogNamed 以级别名称写入一条记录，名称不区分大小写，无法识别时按 INFO 记录。
func (l *Logger) LogNamed(severity, message string) {
	l.Log(ParseSeverity(severity), message)
}

func (l *Logger) Debug(message string) { l.Log(Debug, message) }
func (l *Logger) Info(message string)  { l.Log(Info, message) }
func (l *Logger) Warn(message string)  { l.Log(Warn, message) }
func (l *Logger) Error(message string) { l.Log(Error, message) }

// WithFields 返回附带结构化字段的 Entry，字段以 key=value 形式追加在消息之后。
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.base.WithFields(fields)
}

// Level 返回当前阈值。
func (l *Logger) Level() Severity {
	return l.base.GetLevel()
}

// SetLogPath 先关闭旧文件，再以追加模式打开新路径。
func (l *Logger) SetLogPath(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("关闭旧日志文件失败: %w", err)
		}
		l.file = nil
		l.base.SetOutput(l.console)
	}
	return l.openFile(path)
}

// FilePath 返回当前文件输出路径，未启用文件时为空。
func (l *Logger) FilePath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return ""
	}
	return l.file.Filename
}

// Close 关闭文件输出并退回控制台；可重复调用。
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.base.SetOutput(l.console)
	return err
}
