package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crossborder_rag/config"
	"crossborder_rag/logger"
	"crossborder_rag/utils"
)

// llmErrorBodyLimit 上游错误响应保留的字符数
const llmErrorBodyLimit = 220

// ChatMessage 对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest 一次补全调用的参数，模型由客户端配置决定
type CompletionRequest struct {
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

// 定义补全API请求和响应结构
type completionPayload struct {
	Model       string        `json:"model"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []ChatMessage `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// LLMOptions 补全服务连接参数
type LLMOptions struct {
	APIURL  string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func LLMOptionsFromConfig(cfg *config.Config) LLMOptions {
	return LLMOptions{
		APIURL:  cfg.LLM.APIURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	}
}

// LLMClient OpenAI兼容的chat/completions客户端
type LLMClient struct {
	opts   LLMOptions
	client *http.Client
}

func NewLLMClient(opts LLMOptions) *LLMClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 45 * time.Second
	}
	// 超时由每次调用的context控制，流式响应不能被http.Client的总超时截断
	return &LLMClient{opts: opts, client: &http.Client{}}
}

// Complete 非流式调用，返回choices[0].message.content
func (c *LLMClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	startTime := time.Now()
	resp, err := c.do(ctx, req, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("读取LLM响应失败", "error", err)
		return "", wrapTransportError(ctx, "llm", err)
	}
	logger.Info("LLM响应状态", "status_code", resp.StatusCode, "response_size", len(body), "duration_ms", time.Since(startTime).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("LLM请求失败", "status", resp.StatusCode, "response", utils.PreviewText(string(body), 500))
		return "", newStatusError("llm", resp.StatusCode, body, llmErrorBodyLimit)
	}

	var parsed completionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.Error("解析LLM响应失败", "error", err, "response_body_preview", utils.PreviewText(string(body), 200))
		return "", fmt.Errorf("decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyAnswer
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyAnswer
	}
	logger.Info("成功获取LLM响应",
		"tokens_prompt", parsed.Usage.PromptTokens,
		"tokens_completion", parsed.Usage.CompletionTokens,
		"finish_reason", parsed.Choices[0].FinishReason)
	return content, nil
}

// Stream 流式调用，返回上游的原始事件流，调用方负责Close
func (c *LLMClient) Stream(ctx context.Context, req CompletionRequest) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)

	resp, err := c.do(ctx, req, true)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		logger.Error("LLM流式请求失败", "status", resp.StatusCode, "response", utils.PreviewText(string(body), 500))
		return nil, newStatusError("llm", resp.StatusCode, body, llmErrorBodyLimit)
	}
	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c *LLMClient) do(ctx context.Context, req CompletionRequest, stream bool) (*http.Response, error) {
	payload := completionPayload{
		Model:       c.opts.Model,
		Stream:      stream,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Messages:    req.Messages,
	}
	reqJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	logger.Info("LLM请求详情", "model", c.opts.Model, "stream", stream, "request_size", len(reqJSON))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.APIURL, bytes.NewReader(reqJSON))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		logger.Error("发送LLM请求失败", "error", err)
		return nil, wrapTransportError(ctx, "llm", err)
	}
	return resp, nil
}

// cancelOnClose 关闭流时释放超时context
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
