package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossborder_rag/models"
)

type payload struct {
	Q string `json:"q"`
}

func decode(t *testing.T, body string, limit int64) (payload, error) {
	t.Helper()
	var p payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := DecodeJSONBody(httptest.NewRecorder(), req, limit, &p)
	return p, err
}

func TestDecodeJSONBody(t *testing.T) {
	p, err := decode(t, `{"q":"tariff"}`, 1024)
	require.NoError(t, err)
	assert.Equal(t, "tariff", p.Q)

	p, err = decode(t, "  ", 1024)
	require.NoError(t, err)
	assert.Empty(t, p.Q)

	_, err = decode(t, `{"q":`, 1024)
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForError(err))
	assert.Equal(t, models.CodeInvalidParams, ErrorCodeForError(err))

	_, err = decode(t, `{"q":"`+strings.Repeat("x", 64)+`"}`, 16)
	assert.Equal(t, http.StatusRequestEntityTooLarge, HTTPStatusForError(err))
	assert.Equal(t, models.CodeBodyTooLarge, ErrorCodeForError(err))
}

func TestErrorMappingUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewRequestError(models.CodeMissingParams, ""))
	assert.Equal(t, http.StatusBadRequest, HTTPStatusForError(wrapped))
	assert.Equal(t, models.CodeMissingParams, ErrorCodeForError(wrapped))
	assert.Equal(t, "缺少必要参数", wrapped.(interface{ Unwrap() error }).Unwrap().Error())

	plain := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusForError(plain))
	assert.Equal(t, models.CodeServerError, ErrorCodeForError(plain))
}

func TestHandleServiceError(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, NewRequestError(models.CodeMissingParams, "userQuestion is required"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.ErrorResponse{Error: "userQuestion is required", Code: models.CodeMissingParams}, resp)
}

func TestSSEWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sse := NewSSEWriter(rec)
	require.NoError(t, sse.WriteData([]byte(`{"token":"hi"}`)))
	require.NoError(t, sse.WriteData([]byte("[DONE]")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "keep-alive", rec.Header().Get("Connection"))
	assert.True(t, rec.Flushed)
	assert.Equal(t, "data: {\"token\":\"hi\"}\n\ndata: [DONE]\n\n", rec.Body.String())
}

func TestCalculateMD5(t *testing.T) {
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", CalculateMD5(""))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", CalculateMD5("abc"))
}
