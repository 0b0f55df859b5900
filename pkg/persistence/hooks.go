package persistence

import (
	"context"
	"sync"
)

type commitHooksKey struct{}

// CommitHooks collects work that must only happen once the surrounding transaction
// has committed, such as publishing events about rows it wrote.
type CommitHooks struct {
	mu    sync.Mutex
	hooks []func(context.Context)
}

// WithCommitHooks returns a context on which AfterCommit defers instead of running.
func WithCommitHooks(ctx context.Context) (context.Context, *CommitHooks) {
	hooks := &CommitHooks{}

	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks
}

// AfterCommit registers fn on the context's hooks. Without hooks there is no pending
// commit to wait for and fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks)
	if !ok {
		fn(ctx)

		return
	}

	hooks.mu.Lock()
	hooks.hooks = append(hooks.hooks, fn)
	hooks.mu.Unlock()
}

// Run calls the registered hooks in registration order and clears them.
// A rolled back transaction drops its hooks by never calling Run.
func (h *CommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	pending := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	for _, fn := range pending {
		fn(ctx)
	}
}
