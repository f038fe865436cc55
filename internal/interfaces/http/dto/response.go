// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ebook-studio-api/pkg/errors"
)

// Response 统一响应信封
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorDetail 错误详情，error_code 为业务错误码
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应信封
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

func reply[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

// Success 200
func Success[T any](c *gin.Context, data T) {
	reply(c, http.StatusOK, "success", data, nil)
}

// SuccessWithPage 200，附带分页信息
func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	reply(c, http.StatusOK, "success", data, meta)
}

// Created 201
func Created[T any](c *gin.Context, data T) {
	reply(c, http.StatusCreated, "created", data, nil)
}

// Accepted 202，用于异步提交的运行与任务
func Accepted[T any](c *gin.Context, data T) {
	reply(c, http.StatusAccepted, "accepted", data, nil)
}

// NoContent 204
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// NewPageMeta 创建分页元数据
func NewPageMeta(page, pageSize, total int) *PageMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &PageMeta{Page: page, PageSize: pageSize, Total: total, TotalPages: totalPages}
}

// FromError 将业务错误写成错误信封并中止后续处理。
// 5xx 只暴露通用文案，生成失败除外
func FromError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	message := appErr.Message
	if status >= http.StatusInternalServerError && appErr.Code != apperrors.CodeGenerationFailed {
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error: &ErrorDetail{
			ErrorCode: string(appErr.Code),
			Details:   appErr.Detail,
		},
		TraceID: c.GetString("trace_id"),
	})
}
