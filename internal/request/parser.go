package request

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pickles-http/pickles/internal/config"
	"github.com/pickles-http/pickles/internal/response"
	"github.com/pickles-http/pickles/internal/transport"
)

// DefaultMaxHeaderBytes 是未配置 MaxHeaderBytes 时请求行与头部的上限。
const DefaultMaxHeaderBytes = 64 << 10

// Options 控制后续读取：首块数据缺少头部结束空行时按 ReadChunkSize 继续读取，
// 正文不足 Content-Length 时按 BodyReadWait/BodyReadAttempts 重试读取。
// MaxBodyBytes、MaxHeaderBytes 为 0 时使用默认上限。
type Options struct {
	ReadChunkSize    int
	BodyReadWait     time.Duration
	BodyReadAttempts int
	MaxHeaderBytes   int
	MaxBodyBytes     int
	Writer           *response.Writer
}

var headTerminator = []byte("\r\n\r\n")

// Parse 从 accept 后读到的首块数据 raw 构建 Request；头部或正文不足的部分从 conn 继续读取。
// 失败时返回 ParseError，连接保持打开交由调用方处理。
func Parse(conn *transport.Conn, raw []byte, opts Options) (*Request, error) {
	// 请求行已完整时先校验，明显无效的请求不再等待后续数据。
	if line, ok := firstLine(raw); ok {
		if _, err := parseRequestLine(line); err != nil {
			return nil, err
		}
	}

	if !bytes.Contains(raw, headTerminator) {
		var err error
		raw, err = transport.ReadUntil(conn, raw, headTerminator, opts.ReadChunkSize,
			limitOr(opts.MaxHeaderBytes, DefaultMaxHeaderBytes), opts.BodyReadWait, opts.BodyReadAttempts)
		if errors.Is(err, transport.ErrLimitExceeded) {
			return nil, ErrHeaderTooLarge
		}
		// 超时或对端关闭时按已收到的数据继续解析。
	}

	head, rest, complete := splitHead(raw)
	lines := strings.Split(head, "\n")
	parts, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	headers := parseHeaders(lines[1:])
	length := contentLength(headers)

	body := []byte{}
	if length > 0 {
		if length > limitOr(opts.MaxBodyBytes, config.DefaultMaxBodyBytes) {
			return nil, ErrBodyTooLarge
		}
		if !complete {
			return nil, ErrIncompleteBody
		}
		if body, err = readBody(conn, rest, length, opts); err != nil {
			return nil, ErrIncompleteBody
		}
	}

	return &Request{
		ID:              uuid.NewString(),
		Method:          parts[0],
		Path:            parts[1],
		Version:         parts[2],
		Headers:         headers,
		Body:            body,
		Conn:            conn,
		ResponseHeaders: response.NewHeaders(),
		writer:          opts.Writer,
	}, nil
}

// firstLine 返回首行；尚未收到换行时 ok 为 false，空输入视为空行。
func firstLine(raw []byte) (string, bool) {
	if len(raw) == 0 {
		return "", true
	}
	idx := bytes.IndexByte(raw, '\n')
	if idx < 0 {
		return "", false
	}
	return string(raw[:idx]), true
}

func parseRequestLine(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, ErrEmptyRequest
	}
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return nil, ErrMalformedRequestLine
	}
	return parts, nil
}

func limitOr(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// splitHead 在首个空行处切分头部与正文；找不到空行时整块视为头部。
func splitHead(raw []byte) (string, []byte, bool) {
	idx := bytes.Index(raw, headTerminator)
	if idx < 0 {
		return string(raw), nil, false
	}
	return string(raw[:idx]), raw[idx+len(headTerminator):], true
}

// parseHeaders 逐行解析 `Key: Value`，key 去掉冒号并小写，value 去除空白；
// 不含冒号的行直接忽略。
func parseHeaders(lines []string) map[string]string {
	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
	return headers
}

// contentLength 缺失或无法解析时返回 0。
func contentLength(headers map[string]string) int {
	n, err := strconv.Atoi(headers["content-length"])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func readBody(conn *transport.Conn, have []byte, length int, opts Options) ([]byte, error) {
	if len(have) >= length {
		return append([]byte(nil), have[:length]...), nil
	}
	body := append([]byte(nil), have...)
	more, err := transport.ReadMore(conn, length-len(have), opts.BodyReadWait, opts.BodyReadAttempts)
	if err != nil {
		return nil, err
	}
	return append(body, more...), nil
}
