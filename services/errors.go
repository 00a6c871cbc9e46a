package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"crossborder_rag/models"
	"crossborder_rag/repository"
	"crossborder_rag/utils"
)

// ErrEmptyAnswer 大模型返回空答案
var ErrEmptyAnswer = errors.New("llm returned empty answer")

// ConfigError 缺少调用外部服务所需的凭证
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing configuration: %s", strings.Join(e.Missing, ", "))
}

func (e *ConfigError) HTTPStatus() int { return http.StatusInternalServerError }

func (e *ConfigError) ErrorCode() int { return models.CodeConfigError }

// UpstreamError 外部服务（新闻库或大模型）返回非成功状态或超时
type UpstreamError struct {
	Service    string // store / llm
	StatusCode int
	Body       string
	Timeout    bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s request timed out: %v", e.Service, e.Err)
	}
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s failed %d: %s", e.Service, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// HTTPStatus 返回给调用方的状态码
func (e *UpstreamError) HTTPStatus() int {
	switch {
	case e.Timeout:
		return http.StatusGatewayTimeout
	case e.StatusCode >= 400:
		return e.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// ErrorCode 业务错误码
func (e *UpstreamError) ErrorCode() int {
	switch {
	case e.Timeout:
		return models.CodeUpstreamTimeout
	case e.Service == "store":
		return models.CodeStoreError
	default:
		return models.CodeThirdPartyAPIError
	}
}

// newStatusError 非2xx响应，body截断到limit个字符
func newStatusError(service string, status int, body []byte, limit int) *UpstreamError {
	return &UpstreamError{
		Service:    service,
		StatusCode: status,
		Body:       utils.TruncateRunes(string(body), limit),
	}
}

// wrapTransportError 传输失败和超时统一转换为UpstreamError
func wrapTransportError(ctx context.Context, service string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	var se *repository.StatusError
	if errors.As(err, &se) {
		return &UpstreamError{Service: service, StatusCode: se.StatusCode, Body: se.Body, Err: err}
	}
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	return &UpstreamError{Service: service, Timeout: timeout, Err: err}
}

// IsUpstream 判断是否为上游失败（包括超时）
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
