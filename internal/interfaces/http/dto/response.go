// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vidassist-api/internal/application/errclass"
)

// Response 统一成功响应结构
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorResponse 错误响应结构；error 字段只放面向用户的文案
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Success 返回成功响应
func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
		TraceID: c.GetString("trace_id"),
	})
}

// Error 返回错误响应
func Error(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, ErrorResponse{
		Error:   message,
		TraceID: c.GetString("trace_id"),
	})
}

// Classified 按已分类错误返回
func Classified(c *gin.Context, ce errclass.ClassifiedError) {
	c.JSON(ce.HTTPStatus, ErrorResponse{
		Error:   ce.UserMessage,
		Code:    string(ce.Kind),
		TraceID: c.GetString("trace_id"),
	})
}

// AbortClassified 终止请求并按已分类错误返回
func AbortClassified(c *gin.Context, ce errclass.ClassifiedError) {
	c.AbortWithStatusJSON(ce.HTTPStatus, ErrorResponse{
		Error:   ce.UserMessage,
		Code:    string(ce.Kind),
		TraceID: c.GetString("trace_id"),
	})
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}
