package warehouse

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of memoized query results.
const DefaultCacheSize = 1000

// Result is a memoized query outcome. Failures are cached alongside
// successes so a repeatedly failing statement is not re-issued against
// the warehouse on every render.
type Result struct {
	Table *Table
	Err   string
}

// Failed reports whether the query execution failed.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Backend runs a query against the warehouse. *DB satisfies it.
type Backend interface {
	Query(ctx context.Context, query string) (*Table, error)
}

// Executor memoizes query execution keyed by the exact statement text.
// The underlying LRU is safe for concurrent use; the one-turn-at-a-time
// discipline of the session means identical statements are never
// executed concurrently.
type Executor struct {
	backend Backend
	cache   *lru.Cache[string, Result]
	logger  *slog.Logger
}

// NewExecutor creates an executor with a bounded result cache. A size
// of zero or less falls back to DefaultCacheSize.
func NewExecutor(backend Backend, size int, logger *slog.Logger) *Executor {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, Result](size)
	return &Executor{backend: backend, cache: cache, logger: logger}
}

// Execute returns the result for query, running it against the backend
// only on a cache miss. The statement text is the cache key verbatim;
// no normalization is applied.
func (e *Executor) Execute(ctx context.Context, query string) Result {
	if res, ok := e.cache.Get(query); ok {
		return res
	}

	var res Result
	table, err := e.backend.Query(ctx, query)
	if err != nil {
		e.logger.Warn("query execution failed", "error", err)
		res = Result{Err: err.Error()}
	} else {
		res = Result{Table: table}
	}
	e.cache.Add(query, res)
	return res
}

// Purge drops every cached result. Only an explicit session-wide reset
// clears the cache; history resets leave it intact.
func (e *Executor) Purge() {
	e.cache.Purge()
}
