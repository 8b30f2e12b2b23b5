package response

import (
	"net/textproto"
	"strings"
	"sync"
)

// Headers 是按插入顺序输出、按 key 去重的响应头集合。
// 中间件并发写入，因此所有访问都经过同一把互斥锁。
type Headers struct {
	mu     sync.Mutex
	order  []string
	values map[string]string
}

// NewHeaders 返回空集合。
func NewHeaders() *Headers {
	return &Headers{values: map[string]string{}}
}

// Set 写入或覆盖一个头；key 比较不区分大小写，覆盖时保留首次出现的位置与写法。
func (h *Headers) Set(key, value string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	value = sanitize(value)

	h.mu.Lock()
	defer h.mu.Unlock()
	canonical := textproto.CanonicalMIMEHeaderKey(key)
	if _, exists := h.values[canonical]; !exists {
		h.order = append(h.order, key)
	}
	h.values[canonical] = value
}

// Get 返回 key 对应的值。
func (h *Headers) Get(key string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))]
	return v, ok
}

// Len 返回头的数量。
func (h *Headers) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.order)
}

// Lines 返回 `Key: Value` 形式的快照，顺序与首次写入一致。
func (h *Headers) Lines() []string {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.order))
	for _, key := range h.order {
		out = append(out, key+": "+h.values[textproto.CanonicalMIMEHeaderKey(key)])
	}
	return out
}

// sanitize 去掉换行，避免头部注入破坏报文结构。
func sanitize(v string) string {
	v = strings.ReplaceAll(v, "\r", "")
	v = strings.ReplaceAll(v, "\n", "")
	return strings.TrimSpace(v)
}
