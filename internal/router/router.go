package router

import (
	"sort"
	"strings"

	"github.com/pickles-http/pickles/internal/request"
)

// Handler 负责为匹配到的请求写出且只写出一次响应。
// 返回的 error 由 Server 记录并在连接仍打开时回复 500。
type Handler interface {
	Handle(*request.Request) error
}

// HandlerFunc 让普通函数满足 Handler。
type HandlerFunc func(*request.Request) error

// Handle 调用 f 本身。
func (f HandlerFunc) Handle(req *request.Request) error {
	return f(req)
}

// Router 是 method → path → Handler 的精确匹配表。
// method 统一大写，path 区分大小写且不做前缀/通配匹配。
// 路由应在 Server 启动前注册完毕，运行期间并发注册不受保护。
type Router struct {
	routes map[string]map[string]Handler
}

// New 返回空路由表。
func New() *Router {
	return &Router{routes: make(map[string]map[string]Handler)}
}

// AddRoute 注册 handler；同一 method+path 重复注册时覆盖旧值，nil handler 被忽略。
func (r *Router) AddRoute(method, path string, handler Handler) {
	if handler == nil {
		return
	}
	method = normalizeMethod(method)
	table, ok := r.routes[method]
	if !ok {
		table = make(map[string]Handler)
		r.routes[method] = table
	}
	table[path] = handler
}

// Route 查找 handler，未命中时返回 (nil, false)。
func (r *Router) Route(method, path string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	table, ok := r.routes[normalizeMethod(method)]
	if !ok {
		return nil, false
	}
	handler, ok := table[path]
	return handler, ok
}

// Routes 返回排序后的 `METHOD path` 列表，用于启动日志。
func (r *Router) Routes() []string {
	out := make([]string, 0)
	for method, table := range r.routes {
		for path := range table {
			out = append(out, method+" "+path)
		}
	}
	sort.Strings(out)
	return out
}

func normalizeMethod(method string) string {
	return strings.ToUpper(strings.TrimSpace(method))
}
