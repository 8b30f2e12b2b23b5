package request

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pickles-http/pickles/internal/response"
	"github.com/pickles-http/pickles/internal/transport"
)

// Request 是一次连接解析出的请求。构造后字段只读；唯一可变的部分是
// ResponseHeaders，中间件通过它暂存需要随最终响应输出的头。
type Request struct {
	// ID 为每个连接生成的 UUID，用于日志关联与 X-Request-ID。
	ID      string
	Method  string
	Path    string
	Version string
	// Headers 的 key 已小写，value 已去除首尾空白。
	Headers map[string]string
	// Body 为 Content-Length 指定的原始字节；无正文时为空切片。
	Body []byte
	// Conn 是底层连接；由最终写出响应的一方关闭，且只关闭一次。
	Conn *transport.Conn
	// ResponseHeaders 收集中间件（如 CORS）暂存的响应头。
	ResponseHeaders *response.Headers

	writer *response.Writer
}

// Header 按不区分大小写的 key 读取请求头。
func (r *Request) Header(key string) string {
	return r.Headers[strings.ToLower(strings.TrimSpace(key))]
}

// Send 使用暂存的响应头写出响应并关闭连接。
func (r *Request) Send(body []byte, d response.Descriptor) error {
	if d.Headers == nil {
		d.Headers = r.ResponseHeaders
	}
	return r.writer.Send(r.Conn, body, d)
}

// String 以给定状态码与内容类型写出文本正文。
func (r *Request) String(status int, contentType, body string) error {
	return r.Send([]byte(body), response.Descriptor{Status: status, ContentType: contentType})
}

// JSON 将 v 编码为 JSON 并以 application/json 写出。
func (r *Request) JSON(status int, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("request: encode json: %w", err)
	}
	return r.Send(payload, response.Descriptor{Status: status, ContentType: response.ContentTypeJSON})
}

// Responded 表示连接是否已经写出响应（或已被关闭）。
func (r *Request) Responded() bool {
	return r.Conn == nil || r.Conn.Closed()
}
