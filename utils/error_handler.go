package utils

import (
	"errors"
	"net/http"

	"crossborder_rag/models"
)

// RequestError 请求参数错误
type RequestError struct {
	Code    int
	Message string
}

func (e *RequestError) Error() string { return e.Message }

func (e *RequestError) HTTPStatus() int {
	if e.Code == models.CodeBodyTooLarge {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (e *RequestError) ErrorCode() int { return e.Code }

// NewRequestError 参数错误，message为空时使用错误码默认消息
func NewRequestError(code int, message string) *RequestError {
	if message == "" {
		message = models.CodeMessages[code]
	}
	return &RequestError{Code: code, Message: message}
}

type statusCoder interface {
	HTTPStatus() int
}

type errorCoder interface {
	ErrorCode() int
}

// HTTPStatusForError 错误对应的HTTP状态码，未知错误为500
func HTTPStatusForError(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// ErrorCodeForError 错误对应的业务错误码
func ErrorCodeForError(err error) int {
	var ec errorCoder
	if errors.As(err, &ec) {
		return ec.ErrorCode()
	}
	return models.CodeServerError
}
