package translate

import (
	"context"
	"log/slog"
)

// translateStmt converts English text to Japanese warehouse-side.
const translateStmt = `SELECT SNOWFLAKE.CORTEX.TRANSLATE(?, 'en', 'ja')`

// ValueQuerier runs a query expected to yield a single string value.
// *warehouse.DB satisfies it.
type ValueQuerier interface {
	QueryValue(ctx context.Context, query string, args ...any) (string, error)
}

// Cortex translates English text to Japanese through the session's
// warehouse connection.
type Cortex struct {
	db     ValueQuerier
	logger *slog.Logger
}

// NewCortex creates a warehouse-backed translator.
func NewCortex(db ValueQuerier, logger *slog.Logger) *Cortex {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cortex{db: db, logger: logger}
}

// Translate returns the Japanese rendition of text. Text already in
// Japanese script is returned as-is, which also makes repeated
// translation idempotent. On any backend failure the original text
// comes back unchanged.
func (c *Cortex) Translate(ctx context.Context, text string) string {
	if text == "" || ContainsJapanese(text) {
		return text
	}

	translated, err := c.db.QueryValue(ctx, translateStmt, text)
	if err != nil {
		c.logger.Warn("translation failed, keeping original text", "error", err)
		return text
	}
	if translated == "" {
		return text
	}
	return translated
}
