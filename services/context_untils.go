package services

import (
	"context"
	"time"
)

func persistentContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

// detachedContext keeps request values but survives the request being
// cancelled, bounded by timeout. Post-commit side effects run under it.
func detachedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(persistentContext(ctx), timeout)
}
