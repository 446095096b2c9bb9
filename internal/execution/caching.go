package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gradekit/nbgrade/internal/cache"
)

// CachingExecutor reuses executed notebooks from a [cache.Cache]. Entries are
// keyed by notebook content, kernel and timeout.
type CachingExecutor struct {
	inner   Executor
	cache   *cache.Cache
	kernel  string
	timeout time.Duration
}

// NewCachingExecutor wraps inner with c.
func NewCachingExecutor(inner Executor, c *cache.Cache, kernel string, timeout time.Duration) *CachingExecutor {
	return &CachingExecutor{
		inner:   inner,
		cache:   c,
		kernel:  kernel,
		timeout: timeout,
	}
}

func (e *CachingExecutor) Execute(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading notebook: %w", err)
	}

	key := cache.Key(data, e.kernel, e.timeout)
	if cached, ok := e.cache.Get(key); ok {
		slog.Debug("Executed notebook cache hit", "key", key, "path", cached)
		return cached, nil
	}
	slog.Debug("Executed notebook cache miss", "key", key)

	executedPath, err := e.inner.Execute(ctx, path)
	if err != nil {
		return "", err
	}

	executed, err := os.ReadFile(executedPath)
	if err != nil {
		return "", fmt.Errorf("reading executed notebook: %w", err)
	}

	if _, err := e.cache.Put(key, executed); err != nil {
		// a failed cache write does not invalidate the run
		slog.Warn("Failed to cache executed notebook", "error", err)
	}

	return executedPath, nil
}
