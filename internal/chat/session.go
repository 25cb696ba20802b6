// Package chat owns the multi-turn conversation state and orchestrates
// the submit/classify/translate/append cycle for each turn.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/translate"
)

// japaneseInstruction is prepended to the transmitted copy of a user
// prompt when Japanese responses are enabled. Only the wire copy
// carries it; the displayed history keeps the user's original text.
const japaneseInstruction = `
【重要】以下の点に従って回答してください：
1. 回答は必ず日本語で行ってください
2. データ分析の結果や説明は日本語で分かりやすく記述してください
3. 数値や統計情報には適切な日本語の説明を添えてください
4. 提案やインサイトも日本語で提供してください
5. 専門用語は日本語で説明してください

質問: `

// Client is the part of the analyst API client the session needs.
type Client interface {
	SendMessage(ctx context.Context, req analyst.Request) (*analyst.Response, error)
}

// Session holds the conversation state for one semantic model
// selection. A mutex serializes all state access, so the transcript
// can be read from another goroutine while a turn is in flight.
// Callers still submit one turn at a time; the lock is not held across
// the analyst call itself.
type Session struct {
	client     Client
	translator translate.Translator
	logger     *slog.Logger

	translateResponses bool

	mu               sync.Mutex
	modelPath        string
	history          []analyst.Message
	activeSuggestion string
	apiErrorNotice   bool
}

// NewSession creates a session bound to a semantic model path. The
// translator is consulted for every text-bearing block when
// translateResponses is set; pass translate.Noop otherwise.
func NewSession(client Client, translator translate.Translator, modelPath string, translateResponses bool, logger *slog.Logger) *Session {
	if translator == nil {
		translator = translate.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		client:             client,
		translator:         translator,
		logger:             logger,
		modelPath:          modelPath,
		translateResponses: translateResponses,
	}
}

// Reset clears the conversation history and any pending suggestion.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.history = nil
	s.activeSuggestion = ""
}

// ModelPath returns the selected semantic model path.
func (s *Session) ModelPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelPath
}

// SetModelPath switches the semantic model. Switching invalidates all
// prior context, so the session resets.
func (s *Session) SetModelPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == s.modelPath {
		return
	}
	s.modelPath = path
	s.reset()
}

// Submit runs one full turn: append the user's message, call the
// analyst, classify and translate the response, append the analyst's
// message. API failures become an error turn rather than a returned
// error; the conversation always continues.
func (s *Session) Submit(ctx context.Context, text string) {
	display := analyst.Message{
		Role:    analyst.RoleUser,
		Content: []analyst.ContentBlock{analyst.TextBlock(text)},
	}

	s.mu.Lock()
	s.history = append(s.history, display)
	messages := make([]analyst.Message, len(s.history))
	copy(messages, s.history)
	modelPath := s.modelPath
	s.mu.Unlock()

	// The transmission copy carries the response-language directive;
	// it is used only for this request and never persisted.
	if s.translateResponses {
		messages[len(messages)-1] = analyst.Message{
			Role:    analyst.RoleUser,
			Content: []analyst.ContentBlock{analyst.TextBlock(japaneseInstruction + text)},
		}
	}

	resp, err := s.client.SendMessage(ctx, analyst.Request{
		Messages:          messages,
		SemanticModelFile: "@" + modelPath,
	})
	if err != nil {
		s.appendErrorTurn(ctx, err)
		return
	}

	content := analyst.Classify(resp.Message.Content)
	if s.translateResponses {
		content = translate.Blocks(ctx, s.translator, content)
	}

	s.mu.Lock()
	s.history = append(s.history, analyst.Message{
		Role:      analyst.RoleAnalyst,
		Content:   content,
		RequestID: resp.RequestID,
	})
	s.mu.Unlock()
}

// appendErrorTurn folds an API or transport failure into a displayable
// analyst turn and raises the one-shot error notice.
func (s *Session) appendErrorTurn(ctx context.Context, err error) {
	s.logger.Error("analyst request failed", "error", err)

	var text, requestID string
	var apiErr *analyst.APIError
	if errors.As(err, &apiErr) {
		text = apiErr.Display()
		requestID = apiErr.RequestID
	} else {
		text = fmt.Sprintf("🚨 An Analyst API error has occurred 🚨\n\n%v", err)
	}
	if s.translateResponses {
		text = s.translator.Translate(ctx, text)
	}

	s.mu.Lock()
	s.history = append(s.history, analyst.Message{
		Role:      analyst.RoleAnalyst,
		Content:   []analyst.ContentBlock{analyst.TextBlock(text)},
		RequestID: requestID,
	})
	s.apiErrorNotice = true
	s.mu.Unlock()
}

// SetActiveSuggestion records a clicked suggestion for the next
// processing pass.
func (s *Session) SetActiveSuggestion(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSuggestion = text
}

// ConsumeSuggestion returns the pending suggestion and clears it, so a
// stale suggestion can never be replayed twice.
func (s *Session) ConsumeSuggestion() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeSuggestion == "" {
		return "", false
	}
	text := s.activeSuggestion
	s.activeSuggestion = ""
	return text, true
}

// ErrorNotice reports whether an API error occurred since the last
// check, clearing the flag so it surfaces exactly once.
func (s *Session) ErrorNotice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	notice := s.apiErrorNotice
	s.apiErrorNotice = false
	return notice
}

// History returns a copy of the conversation transcript in turn order.
func (s *Session) History() []analyst.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analyst.Message, len(s.history))
	copy(out, s.history)
	return out
}
