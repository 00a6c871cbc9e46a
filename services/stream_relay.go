package services

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"crossborder_rag/logger"
	"crossborder_rag/models"
	"crossborder_rag/utils"
)

// StreamEventKind 返回给调用方的事件类型
type StreamEventKind string

const (
	StreamEventSources StreamEventKind = "sources"
	StreamEventToken   StreamEventKind = "token"
	StreamEventResult  StreamEventKind = "result"
	StreamEventError   StreamEventKind = "error"
	StreamEventDone    StreamEventKind = "done"
)

// DoneSentinel 流结束标记
const DoneSentinel = "[DONE]"

// DefaultStreamChunkSize 非流式答案重新切分的片段长度
const DefaultStreamChunkSize = 80

// StreamEvent 一个事件，Payload按Kind取值：
// sources为[]models.SearchResult，token/error为string，result为models.GroundedAnswer
type StreamEvent struct {
	Kind    StreamEventKind
	Payload any
}

// WireData 事件在data行中的内容
func (e StreamEvent) WireData() ([]byte, error) {
	switch e.Kind {
	case StreamEventDone:
		return []byte(DoneSentinel), nil
	case StreamEventSources:
		sources, _ := e.Payload.([]models.SearchResult)
		if sources == nil {
			sources = []models.SearchResult{}
		}
		return json.Marshal(map[string]any{"sources": sources})
	case StreamEventResult:
		ans, _ := e.Payload.(models.GroundedAnswer)
		if ans.Sources == nil {
			ans.Sources = []models.SearchResult{}
		}
		return json.Marshal(map[string]any{"result": ans})
	case StreamEventToken, StreamEventError:
		return json.Marshal(map[string]any{string(e.Kind): e.Payload})
	default:
		return nil, errors.New("unknown stream event kind: " + string(e.Kind))
	}
}

// ParseUpstreamLine 解析上游的一行：
// done为true表示遇到结束标记；ok为false表示该行无关或无法解析
func ParseUpstreamLine(line string) (token string, done bool, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "data:") {
		return "", false, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if payload == DoneSentinel {
		return "", true, false
	}

	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		logger.Debug("跳过无法解析的上游事件", "payload", utils.PreviewText(payload, 120), "error", err)
		return "", false, false
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return "", false, false
	}
	return chunk.Choices[0].Delta.Content, false, true
}

// ReadUpstreamStream 逐行读取上游事件流，按顺序把文本片段交给emit。
// 遇到结束标记或EOF返回nil；emit返回false时停止读取
func ReadUpstreamStream(r io.Reader, emit func(token string) bool) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			token, done, ok := ParseUpstreamLine(line)
			if done {
				return nil
			}
			if ok && !emit(token) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// sendStreamEvent 调用方已断开时返回false
func sendStreamEvent(ctx context.Context, events chan<- StreamEvent, event StreamEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- event:
		return true
	}
}

// GroundedEvents 问答模式的事件序列：sources → token... → result → done
func GroundedEvents(ctx context.Context, answer models.GroundedAnswer, chunkSize int) <-chan StreamEvent {
	if chunkSize <= 0 {
		chunkSize = DefaultStreamChunkSize
	}
	if answer.Sources == nil {
		answer.Sources = []models.SearchResult{}
	}

	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)

		if !sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventSources, Payload: answer.Sources}) {
			return
		}
		for _, piece := range utils.ChunkRunes(answer.Answer, chunkSize) {
			if !sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventToken, Payload: piece}) {
				return
			}
		}
		if !sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventResult, Payload: answer}) {
			return
		}
		sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventDone})
	}()
	return events
}

// RelayUpstream 把上游事件流转成token事件，读取失败时追加error事件，最后总是done
func RelayUpstream(ctx context.Context, body io.ReadCloser) <-chan StreamEvent {
	events := make(chan StreamEvent, 4)
	go func() {
		defer close(events)
		defer body.Close()

		count := 0
		err := ReadUpstreamStream(body, func(token string) bool {
			count++
			return sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventToken, Payload: token})
		})
		if ctx.Err() != nil {
			logger.Info("调用方已断开，停止转发", "tokens", count)
			return
		}
		if err != nil {
			logger.Error("上游流读取失败", "tokens", count, "error", err)
			if !sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventError, Payload: "upstream stream interrupted"}) {
				return
			}
		}
		sendStreamEvent(ctx, events, StreamEvent{Kind: StreamEventDone})
	}()
	return events
}
