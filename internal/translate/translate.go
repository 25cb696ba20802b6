// Package translate post-processes analyst output into Japanese using
// the warehouse-side SNOWFLAKE.CORTEX.TRANSLATE function.
package translate

import (
	"context"

	"github.com/mshdtksk/sfguide-getting-started-with-cortex-analyst-main-local/internal/analyst"
)

// Translator converts text to the target language. Implementations are
// best-effort: on any failure they return the input unchanged, so a
// broken translation path never stalls the conversation.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// Noop passes text through. Used when Japanese responses are disabled.
type Noop struct{}

func (Noop) Translate(_ context.Context, text string) string { return text }

// ContainsJapanese reports whether any rune falls in the hiragana,
// katakana or CJK unified ideograph ranges. A script heuristic, not
// language detection; enough to avoid re-translating Japanese text.
func ContainsJapanese(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0x3040 && r <= 0x309F, // hiragana
			r >= 0x30A0 && r <= 0x30FF, // katakana
			r >= 0x4E00 && r <= 0x9FAF: // kanji
			return true
		}
	}
	return false
}

// Blocks translates the text-bearing parts of classified content: text
// blocks and each suggestion item. SQL statements and anything else
// pass through untouched.
func Blocks(ctx context.Context, tr Translator, blocks []analyst.ContentBlock) []analyst.ContentBlock {
	out := make([]analyst.ContentBlock, len(blocks))
	for i, block := range blocks {
		switch block.Type {
		case analyst.BlockText:
			block.Text = tr.Translate(ctx, block.Text)
		case analyst.BlockSuggestions:
			items := make([]string, len(block.Suggestions))
			for j, s := range block.Suggestions {
				items[j] = tr.Translate(ctx, s)
			}
			block.Suggestions = items
		}
		out[i] = block
	}
	return out
}
