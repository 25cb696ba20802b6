// Package analyst provides the client for the Cortex Analyst message API
// and the classification of its heterogeneous response payloads.
package analyst

import "encoding/json"

// Message roles. The analyst API uses "analyst" rather than the more
// common "assistant".
const (
	RoleUser    = "user"
	RoleAnalyst = "analyst"
)

// BlockType discriminates the content block variants the analyst emits.
type BlockType string

const (
	BlockText        BlockType = "text"
	BlockSuggestions BlockType = "suggestions"
	BlockSQL         BlockType = "sql"
)

// ContentBlock is one unit of a message's content. Exactly one variant
// field is meaningful, selected by Type.
type ContentBlock struct {
	Type        BlockType `json:"type"`
	Text        string    `json:"text,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Statement   string    `json:"statement,omitempty"`
}

// TextBlock builds a text-only content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// Message is a single conversation turn. Messages are immutable once
// appended to a session's history.
type Message struct {
	Role      string         `json:"role"`
	Content   []ContentBlock `json:"content"`
	RequestID string         `json:"request_id,omitempty"`
}

// Classify converts raw response content into typed blocks, preserving
// order. Blocks with an unrecognized type discriminator are dropped so
// that new server-side block kinds never abort rendering.
func Classify(raw []json.RawMessage) []ContentBlock {
	blocks := make([]ContentBlock, 0, len(raw))
	for _, item := range raw {
		var block ContentBlock
		if err := json.Unmarshal(item, &block); err != nil {
			continue
		}
		switch block.Type {
		case BlockText, BlockSuggestions, BlockSQL:
			blocks = append(blocks, block)
		}
	}
	return blocks
}
