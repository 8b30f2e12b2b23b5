package request

// ParseError 枚举请求解析阶段可能出现的失败；worker 据此记录日志并关闭连接。
type ParseError int

const (
	// ErrEmptyRequest 表示首个数据块中没有请求行。
	ErrEmptyRequest ParseError = iota + 1
	// ErrMalformedRequestLine 表示请求行不是 `METHOD PATH VERSION` 三段。
	ErrMalformedRequestLine
	// ErrBodyTooLarge 表示 Content-Length 超过 MaxBodyBytes。
	ErrBodyTooLarge
	// ErrIncompleteBody 表示在重试次数内没有读满 Content-Length 字节。
	ErrIncompleteBody
	// ErrHeaderTooLarge 表示读满 MaxHeaderBytes 仍未出现头部结束的空行。
	ErrHeaderTooLarge
)

func (e ParseError) Error() string {
	switch e {
	case ErrEmptyRequest:
		return "request: empty request"
	case ErrMalformedRequestLine:
		return "request: malformed request line"
	case ErrBodyTooLarge:
		return "request: body exceeds limit"
	case ErrIncompleteBody:
		return "request: incomplete body"
	case ErrHeaderTooLarge:
		return "request: header exceeds limit"
	default:
		return "request: unknown parse error"
	}
}
