package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
)

// fakeClient replays canned responses and records every request.
type fakeClient struct {
	requests  []analyst.Request
	responses []*analyst.Response
	errs      []error
}

func (f *fakeClient) SendMessage(_ context.Context, req analyst.Request) (*analyst.Response, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return textResponse("ok", "req-default"), nil
}

func textResponse(text, requestID string) *analyst.Response {
	resp := &analyst.Response{RequestID: requestID}
	resp.Message.Role = analyst.RoleAnalyst
	resp.Message.Content = []json.RawMessage{
		json.RawMessage(`{"type":"text","text":"` + text + `"}`),
	}
	return resp
}

// markTranslator wraps text so tests can see the translation step ran.
type markTranslator struct{}

func (markTranslator) Translate(_ context.Context, text string) string {
	return "訳:" + text
}

// gateClient blocks every call until release is closed, keeping a turn
// in flight for as long as the test needs.
type gateClient struct {
	release chan struct{}
}

func (g *gateClient) SendMessage(_ context.Context, _ analyst.Request) (*analyst.Response, error) {
	<-g.release
	return textResponse("done", "req-gate"), nil
}

func TestHistoryReadableWhileTurnInFlight(t *testing.T) {
	client := &gateClient{release: make(chan struct{})}
	s := NewSession(client, nil, "m/model.yaml", false, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Submit(context.Background(), "slow question")
	}()

	// The user's turn must become visible mid-flight without tripping
	// the race detector.
	for len(s.History()) == 0 {
		time.Sleep(time.Millisecond)
	}
	history := s.History()
	require.Len(t, history, 1)
	assert.Equal(t, analyst.RoleUser, history[0].Role)

	close(client.release)
	<-done

	history = s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "done", history[1].Content[0].Text)
}

func TestSubmitAppendsOneTurnPerCall(t *testing.T) {
	client := &fakeClient{}
	s := NewSession(client, nil, "DB.SCHEMA.STAGE/model.yaml", false, nil)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		s.Submit(ctx, "question")
		require.Len(t, s.History(), 2*i, "history must hold exactly two messages per submission")
	}

	history := s.History()
	for i, msg := range history {
		if i%2 == 0 {
			assert.Equal(t, analyst.RoleUser, msg.Role, "message %d", i)
		} else {
			assert.Equal(t, analyst.RoleAnalyst, msg.Role, "message %d", i)
		}
	}
}

func TestSubmitAugmentsWireCopyOnly(t *testing.T) {
	client := &fakeClient{responses: []*analyst.Response{textResponse("answer", "r1")}}
	s := NewSession(client, markTranslator{}, "m/model.yaml", true, nil)

	s.Submit(context.Background(), "how is revenue?")

	// Persisted history keeps the user's original text.
	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "how is revenue?", history[0].Content[0].Text)

	// The wire request carries the augmented transmission copy.
	require.Len(t, client.requests, 1)
	wire := client.requests[0].Messages
	require.Len(t, wire, 1)
	sent := wire[0].Content[0].Text
	assert.True(t, strings.HasSuffix(sent, "how is revenue?"))
	assert.Contains(t, sent, "日本語")
	assert.Equal(t, "@m/model.yaml", client.requests[0].SemanticModelFile)
}

func TestSubmitPriorTurnsUnchangedOnWire(t *testing.T) {
	client := &fakeClient{
		responses: []*analyst.Response{
			textResponse("a1", "r1"),
			textResponse("a2", "r2"),
		},
	}
	s := NewSession(client, markTranslator{}, "m/model.yaml", true, nil)
	ctx := context.Background()

	s.Submit(ctx, "first")
	s.Submit(ctx, "second")

	require.Len(t, client.requests, 2)
	wire := client.requests[1].Messages
	require.Len(t, wire, 3)
	// The earlier user turn goes out exactly as persisted, without the
	// language directive; only the last turn is augmented.
	assert.Equal(t, "first", wire[0].Content[0].Text)
	assert.Equal(t, analyst.RoleAnalyst, wire[1].Role)
	assert.Contains(t, wire[2].Content[0].Text, "second")
	assert.Contains(t, wire[2].Content[0].Text, "【重要】")
}

func TestSubmitTranslatesResponseBlocks(t *testing.T) {
	client := &fakeClient{responses: []*analyst.Response{textResponse("answer", "r1")}}
	s := NewSession(client, markTranslator{}, "m/model.yaml", true, nil)

	s.Submit(context.Background(), "q")

	history := s.History()
	assert.Equal(t, "訳:answer", history[1].Content[0].Text)
	assert.Equal(t, "r1", history[1].RequestID)
}

func TestSubmitAPIErrorBecomesErrorTurn(t *testing.T) {
	client := &fakeClient{
		errs: []error{&analyst.APIError{
			Status:    404,
			RequestID: "req-9",
			ErrorCode: "E1",
			Message:   "bad",
		}},
	}
	s := NewSession(client, nil, "m/model.yaml", false, nil)

	s.Submit(context.Background(), "q")

	history := s.History()
	require.Len(t, history, 2)
	errTurn := history[1]
	assert.Equal(t, analyst.RoleAnalyst, errTurn.Role)
	require.Len(t, errTurn.Content, 1)
	assert.Equal(t, analyst.BlockText, errTurn.Content[0].Type)
	assert.Contains(t, errTurn.Content[0].Text, "404")
	assert.Contains(t, errTurn.Content[0].Text, "E1")
	assert.Contains(t, errTurn.Content[0].Text, "bad")
	assert.Equal(t, "req-9", errTurn.RequestID)

	// One-shot notice: true once, then cleared.
	assert.True(t, s.ErrorNotice())
	assert.False(t, s.ErrorNotice())
}

func TestSubmitDropsUnknownBlocks(t *testing.T) {
	resp := &analyst.Response{RequestID: "r1"}
	resp.Message.Content = []json.RawMessage{
		json.RawMessage(`{"type":"text","text":"A"}`),
		json.RawMessage(`{"type":"sql","statement":"SELECT 1"}`),
		json.RawMessage(`{"type":"bogus"}`),
	}
	client := &fakeClient{responses: []*analyst.Response{resp}}
	s := NewSession(client, nil, "m/model.yaml", false, nil)

	s.Submit(context.Background(), "q")

	blocks := s.History()[1].Content
	require.Len(t, blocks, 2)
	assert.Equal(t, "A", blocks[0].Text)
	assert.Equal(t, "SELECT 1", blocks[1].Statement)
}

func TestReset(t *testing.T) {
	client := &fakeClient{}
	s := NewSession(client, nil, "m/model.yaml", false, nil)
	s.Submit(context.Background(), "q")
	s.SetActiveSuggestion("follow-up")

	s.Reset()

	assert.Empty(t, s.History())
	_, ok := s.ConsumeSuggestion()
	assert.False(t, ok)
}

func TestSetModelPathResets(t *testing.T) {
	client := &fakeClient{}
	s := NewSession(client, nil, "m/a.yaml", false, nil)
	s.Submit(context.Background(), "q")

	s.SetModelPath("m/b.yaml")
	assert.Empty(t, s.History(), "model switch must reset the session")
	assert.Equal(t, "m/b.yaml", s.ModelPath())

	// Re-selecting the current model is a no-op.
	s.Submit(context.Background(), "q")
	s.SetModelPath("m/b.yaml")
	assert.Len(t, s.History(), 2)
}

func TestSuggestionConsumedAtMostOnce(t *testing.T) {
	s := NewSession(&fakeClient{}, nil, "m/model.yaml", false, nil)

	s.SetActiveSuggestion("show totals")

	text, ok := s.ConsumeSuggestion()
	require.True(t, ok)
	assert.Equal(t, "show totals", text)

	_, ok = s.ConsumeSuggestion()
	assert.False(t, ok, "a consumed suggestion must never replay")
}

func TestHistoryIsACopy(t *testing.T) {
	s := NewSession(&fakeClient{}, nil, "m/model.yaml", false, nil)
	s.Submit(context.Background(), "q")

	history := s.History()
	history[0] = analyst.Message{Role: "mutated"}

	assert.Equal(t, analyst.RoleUser, s.History()[0].Role)
}
