package main

import (
	"encoding/json"

	"github.com/gofiber/fiber/v3"

	"github.com/pickles-http/pickles/internal/request"
	"github.com/pickles-http/pickles/internal/response"
	"github.com/pickles-http/pickles/internal/router"
	"github.com/pickles-http/pickles/internal/server"
)

// registerExampleRoutes 挂载示例应用：GET / 返回问候语，POST /post 解析 JSON 中的 name。
func registerExampleRoutes(srv *server.Server) {
	srv.AddRoute(fiber.MethodGet, "/", router.HandlerFunc(homeHandler))
	srv.AddRoute(fiber.MethodPost, "/post", router.HandlerFunc(postHandler))
}

func homeHandler(req *request.Request) error {
	return req.String(response.StatusOK, response.ContentTypeHTML, "Hello World")
}

// postHandler 解析失败时以 500 返回解析器的错误信息。
func postHandler(req *request.Request) error {
	var payload struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return req.String(response.StatusInternalServerError, response.ContentTypeHTML, "Error: "+err.Error())
	}
	return req.String(response.StatusOK, response.ContentTypeJSON, "Hello "+payload.Name+", how are u?")
}
