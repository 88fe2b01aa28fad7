package ext

import (
	"context"
	"log/slog"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type itemPushedEntry struct {
	name string
	hook ItemPushed
}

type itemPoppedEntry struct {
	name string
	hook ItemPopped
}

type queueOverflowEntry struct {
	name string
	hook QueueOverflow
}

type roundRebuiltEntry struct {
	name string
	hook RoundRebuilt
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
//
// Register all extensions before handing the Registry to a queue or a
// worker pool; registration is not synchronized with emission.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	itemPushed    []itemPushedEntry
	itemPopped    []itemPoppedEntry
	queueOverflow []queueOverflowEntry
	roundRebuilt  []roundRebuiltEntry
	shutdown      []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(ItemPushed); ok {
		r.itemPushed = append(r.itemPushed, itemPushedEntry{name, h})
	}
	if h, ok := e.(ItemPopped); ok {
		r.itemPopped = append(r.itemPopped, itemPoppedEntry{name, h})
	}
	if h, ok := e.(QueueOverflow); ok {
		r.queueOverflow = append(r.queueOverflow, queueOverflowEntry{name, h})
	}
	if h, ok := e.(RoundRebuilt); ok {
		r.roundRebuilt = append(r.roundRebuilt, roundRebuiltEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Event emitters
// ──────────────────────────────────────────────────

// EmitItemPushed notifies all extensions that implement ItemPushed.
func (r *Registry) EmitItemPushed(ctx context.Context, ev PushEvent) {
	for _, e := range r.itemPushed {
		if err := e.hook.OnItemPushed(ctx, ev); err != nil {
			r.logHookError("OnItemPushed", e.name, err)
		}
	}
}

// EmitItemPopped notifies all extensions that implement ItemPopped.
func (r *Registry) EmitItemPopped(ctx context.Context, ev PopEvent) {
	for _, e := range r.itemPopped {
		if err := e.hook.OnItemPopped(ctx, ev); err != nil {
			r.logHookError("OnItemPopped", e.name, err)
		}
	}
}

// EmitQueueOverflow notifies all extensions that implement QueueOverflow.
func (r *Registry) EmitQueueOverflow(ctx context.Context, ev OverflowEvent) {
	for _, e := range r.queueOverflow {
		if err := e.hook.OnQueueOverflow(ctx, ev); err != nil {
			r.logHookError("OnQueueOverflow", e.name, err)
		}
	}
}

// EmitRoundRebuilt notifies all extensions that implement RoundRebuilt.
func (r *Registry) EmitRoundRebuilt(ctx context.Context, ev RoundEvent) {
	for _, e := range r.roundRebuilt {
		if err := e.hook.OnRoundRebuilt(ctx, ev); err != nil {
			r.logHookError("OnRoundRebuilt", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Extension errors never propagate to
// the queue operation that triggered the event.
func (r *Registry) logHookError(hook, extension string, err error) {
	r.logger.Error("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extension),
		slog.String("error", err.Error()),
	)
}
