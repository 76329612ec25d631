package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// hotHandler serves whichever handler the last successful build produced.
// CORS and rate limiting both rebuild their wrapped handler from database
// rows on a ticker.
type hotHandler struct {
	mu      sync.RWMutex
	next    http.Handler
	current http.Handler
}

func (h *hotHandler) swap(next http.Handler) {
	h.mu.Lock()
	h.current = next
	h.mu.Unlock()
}

func (h *hotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.current
	h.mu.RUnlock()
	if current == nil {
		current = h.next
	}
	current.ServeHTTP(w, r)
}

// runEvery calls fn every interval until ctx is done. A non-positive
// interval disables reloading.
func runEvery(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
