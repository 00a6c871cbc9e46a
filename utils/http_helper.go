package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crossborder_rag/models"
)

// WriteJSON 写入JSON响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, status int, data interface{}) {
	WriteJSON(w, status, models.NewSuccessResponse(data))
}

// WriteErrorResponse 写入错误响应
func WriteErrorResponse(w http.ResponseWriter, status, code int, message string) {
	WriteJSON(w, status, models.NewErrorResponse(code, message))
}

// HandleServiceError 处理服务层错误的通用函数
func HandleServiceError(w http.ResponseWriter, err error) {
	WriteErrorResponse(w, HTTPStatusForError(err), ErrorCodeForError(err), err.Error())
}

// DecodeJSONBody 读取并解析请求体，空请求体视为{}
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return NewRequestError(models.CodeBodyTooLarge, "Payload too large")
		}
		return NewRequestError(models.CodeInvalidParams, "Invalid request body")
	}
	if strings.TrimSpace(string(body)) == "" {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return NewRequestError(models.CodeInvalidParams, "Invalid JSON body")
	}
	return nil
}

// SSEWriter 以text/event-stream输出事件，每个事件写完立即flush
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter 写入事件流响应头
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream; charset=utf-8")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	sw := &SSEWriter{w: w, flusher: flusher}
	sw.flush()
	return sw
}

// WriteData 写入一行 data: <payload> 和一个空行
func (s *SSEWriter) WriteData(payload []byte) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *SSEWriter) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}
