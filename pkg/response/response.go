// Package response 统一 HTTP 响应格式 {code, message, data}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 响应体，code 为 0 表示成功，否则为 HTTP 状态码
type Response struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success 返回 200 与数据
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:      0,
		Message:   "success",
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// Created 返回 201 与数据
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Code:      0,
		Message:   "created",
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// ErrorWithStatus 返回指定状态码的错误
func ErrorWithStatus(c *gin.Context, status int, message, detail string) {
	c.AbortWithStatusJSON(status, Response{
		Code:      status,
		Message:   message,
		Detail:    detail,
		RequestID: c.GetString("request_id"),
	})
}

// ErrorWithData 返回带结构化数据的错误，例如库存不足时的请求数量与可用数量
func ErrorWithData(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, Response{
		Code:      status,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}
