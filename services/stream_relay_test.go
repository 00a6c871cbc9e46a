package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossborder_rag/models"
)

func upstreamLine(token string) string {
	return `data: {"choices":[{"delta":{"content":"` + token + `"}}]}` + "\n\n"
}

func collectEvents(ch <-chan StreamEvent) []StreamEvent {
	var out []StreamEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func TestParseUpstreamLine(t *testing.T) {
	tok, done, ok := ParseUpstreamLine(`data: {"choices":[{"delta":{"content":"关税"}}]}`)
	assert.Equal(t, "关税", tok)
	assert.False(t, done)
	assert.True(t, ok)

	_, done, ok = ParseUpstreamLine("data: [DONE]")
	assert.True(t, done)
	assert.False(t, ok)

	_, _, ok = ParseUpstreamLine("event: ping")
	assert.False(t, ok)

	_, _, ok = ParseUpstreamLine("data: {not json")
	assert.False(t, ok)

	_, _, ok = ParseUpstreamLine(`data: {"choices":[{"delta":{}}]}`)
	assert.False(t, ok)
}

// N条有效记录加1条坏记录，转发N个token且顺序不变
func TestReadUpstreamStreamSkipsMalformed(t *testing.T) {
	body := upstreamLine("a") + "data: {broken\n\n" + upstreamLine("b") + ": keep-alive\n" + upstreamLine("c") + "data: [DONE]\n\n" + upstreamLine("after")

	var got []string
	err := ReadUpstreamStream(strings.NewReader(body), func(tok string) bool {
		got = append(got, tok)
		return true
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestReadUpstreamStreamWithoutTrailingNewline(t *testing.T) {
	var got []string
	err := ReadUpstreamStream(strings.NewReader(upstreamLine("x")+`data: {"choices":[{"delta":{"content":"y"}}]}`), func(tok string) bool {
		got = append(got, tok)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestGroundedEventsOrdering(t *testing.T) {
	answer := models.GroundedAnswer{
		Answer:  strings.Repeat("答", 170),
		Sources: []models.SearchResult{{ID: "1", Title: "t"}},
	}
	events := collectEvents(GroundedEvents(context.Background(), answer, 80))

	require.Len(t, events, 6)
	assert.Equal(t, StreamEventSources, events[0].Kind)
	for _, ev := range events[1:4] {
		assert.Equal(t, StreamEventToken, ev.Kind)
	}
	assert.Equal(t, strings.Repeat("答", 10), events[3].Payload)
	assert.Equal(t, StreamEventResult, events[4].Kind)
	assert.Equal(t, StreamEventDone, events[5].Kind)

	var joined strings.Builder
	for _, ev := range events[1:4] {
		joined.WriteString(ev.Payload.(string))
	}
	assert.Equal(t, answer.Answer, joined.String())
}

func TestGroundedEventsEmptySourcesStillSent(t *testing.T) {
	events := collectEvents(GroundedEvents(context.Background(), models.GroundedAnswer{Answer: "无"}, 80))
	require.NotEmpty(t, events)

	data, err := events[0].WireData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"sources":[]}`, string(data))

	data, err = events[len(events)-2].WireData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":{"answer":"无","sources":[]}}`, string(data))
}

func TestWireData(t *testing.T) {
	data, err := StreamEvent{Kind: StreamEventToken, Payload: "hi"}.WireData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"token":"hi"}`, string(data))

	data, err = StreamEvent{Kind: StreamEventError, Payload: "boom"}.WireData()
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"boom"}`, string(data))

	data, err = StreamEvent{Kind: StreamEventDone}.WireData()
	require.NoError(t, err)
	assert.Equal(t, "[DONE]", string(data))
}

// errReader 先返回数据，再返回读取错误
type errReader struct {
	data string
	read bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, errors.New("connection reset")
}

func (r *errReader) Close() error { return nil }

func TestRelayUpstreamMidStreamFailure(t *testing.T) {
	body := &errReader{data: upstreamLine("a") + upstreamLine("b")}
	events := collectEvents(RelayUpstream(context.Background(), body))

	require.Len(t, events, 4)
	assert.Equal(t, "a", events[0].Payload)
	assert.Equal(t, "b", events[1].Payload)
	assert.Equal(t, StreamEventError, events[2].Kind)
	assert.Equal(t, StreamEventDone, events[3].Kind)
}

func TestRelayUpstreamCompletes(t *testing.T) {
	body := io.NopCloser(strings.NewReader(upstreamLine("a") + "data: [DONE]\n\n"))
	events := collectEvents(RelayUpstream(context.Background(), body))

	require.Len(t, events, 2)
	assert.Equal(t, StreamEventToken, events[0].Kind)
	assert.Equal(t, StreamEventDone, events[1].Kind)
}

func TestRelayUpstreamStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := io.NopCloser(strings.NewReader(upstreamLine("a") + upstreamLine("b")))
	events := collectEvents(RelayUpstream(ctx, body))
	// 已取消的context下可能一个事件都发不出去
	for _, ev := range events {
		assert.NotEqual(t, StreamEventError, ev.Kind)
	}
}
