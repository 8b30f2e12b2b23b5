package response

import (
	"bufio"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/transport"
)

// 常用状态码与内容类型，直接复用 fiber 的协议常量。
const (
	StatusOK                  = fiber.StatusOK
	StatusBadRequest          = fiber.StatusBadRequest
	StatusNotFound            = fiber.StatusNotFound
	StatusInternalServerError = fiber.StatusInternalServerError

	ContentTypeHTML = fiber.MIMETextHTML
	ContentTypeJSON = fiber.MIMEApplicationJSON
	ContentTypeText = fiber.MIMETextPlain

	DefaultVersion = "1.1"
)

// Descriptor 描述一次响应：状态码、内容类型、协议版本与自定义头。
// 零值字段在发送时回退为 200 / text/html / 1.1。
type Descriptor struct {
	Status      int
	ContentType string
	Version     string
	Headers     *Headers
}

// withDefaults 补全零值字段。
func (d Descriptor) withDefaults() Descriptor {
	if d.Status == 0 {
		d.Status = StatusOK
	}
	if d.ContentType == "" {
		d.ContentType = ContentTypeHTML
	}
	if d.Version == "" {
		d.Version = DefaultVersion
	}
	return d
}

// hopByHopHeaders 列出连接级头；本服务从不保持连接也不分块传输，这些头一律不输出。
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Proxy-Connection":    {},
}

// IsHopByHopHeader 判断 key 是否属于连接级头。
func IsHopByHopHeader(key string) bool {
	_, ok := hopByHopHeaders[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))]
	return ok
}

// Writer 负责把响应写到连接上并关闭连接。
type Writer struct {
	logger *logging.Logger
}

// NewWriter 使用共享 Logger 创建 Writer。
func NewWriter(logger *logging.Logger) *Writer {
	return &Writer{logger: logger}
}

// Send 写出状态行、Content-Type、自定义头、空行与可选正文，随后无条件关闭连接。
// 连接已关闭时直接返回；对端断开（broken pipe / reset）只记录告警不返回错误，
// 其它写入错误记录后返回，连接同样会被关闭。
func (w *Writer) Send(conn *transport.Conn, body []byte, d Descriptor) (err error) {
	if conn == nil || conn.Closed() {
		return nil
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil && !transport.IsBrokenPipe(closeErr) {
			err = fmt.Errorf("response: close: %w", closeErr)
		}
	}()

	d = d.withDefaults()
	bw := bufio.NewWriter(conn)
	writeHead(bw, d)
	if body != nil {
		_, _ = bw.Write(body)
	}

	if flushErr := bw.Flush(); flushErr != nil {
		fields := logrus.Fields{
			"action": "send_response",
			"remote": conn.RemoteAddr(),
			"status": d.Status,
		}
		if transport.IsBrokenPipe(flushErr) {
			w.logger.WithFields(fields).Warn("client went away before the response was written: " + flushErr.Error())
			return nil
		}
		w.logger.WithFields(fields).Error("write response failed: " + flushErr.Error())
		return fmt.Errorf("response: write: %w", flushErr)
	}
	return nil
}

// writeHead 写出状态行与全部头部，以空行结束。
func writeHead(bw *bufio.Writer, d Descriptor) {
	bw.WriteString("HTTP/" + d.Version + " " + strconv.Itoa(d.Status) + "\r\n")
	bw.WriteString(fiber.HeaderContentType + ": " + d.ContentType + "\r\n")
	for _, line := range d.Headers.Lines() {
		key, _, _ := strings.Cut(line, ":")
		if strings.EqualFold(key, fiber.HeaderContentType) || IsHopByHopHeader(key) {
			continue
		}
		bw.WriteString(line + "\r\n")
	}
	bw.WriteString("\r\n")
}
