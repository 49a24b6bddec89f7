package resolver

import (
	"context"
	"time"

	"github.com/codeGROOVE-dev/dossier/pkg/identity"
)

// BatchItem is one entry of a batch run. Exactly one of Result and Error is set.
type BatchItem struct {
	Query  identity.Query `json:"query"`
	Result *Result        `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// ResolveBatch resolves queries one at a time, pausing for the batch delay
// after every item but the last. Invalid queries become error items and the
// batch continues. Cancelling ctx stops the batch and returns the items
// finished so far together with the context error.
func (r *Resolver) ResolveBatch(ctx context.Context, queries []identity.Query) ([]BatchItem, error) {
	items := make([]BatchItem, 0, len(queries))
	for i, q := range queries {
		if i > 0 {
			if err := r.pause(ctx); err != nil {
				r.logger.WarnContext(ctx, "batch stopped", "done", i, "total", len(queries), "error", err)
				return items, err
			}
		}
		if err := ctx.Err(); err != nil {
			r.logger.WarnContext(ctx, "batch stopped", "done", i, "total", len(queries), "error", err)
			return items, err
		}

		res, err := r.Resolve(ctx, q)
		if err != nil {
			r.logger.WarnContext(ctx, "batch item rejected", "index", i, "error", err)
			items = append(items, BatchItem{Query: q, Error: err.Error()})
			continue
		}
		items = append(items, BatchItem{Query: res.Query, Result: &res})
		r.logger.InfoContext(ctx, "batch progress", "done", i+1, "total", len(queries))
	}
	return items, nil
}

// pause waits out the batch delay or returns early when ctx ends.
func (r *Resolver) pause(ctx context.Context) error {
	if r.batchDelay <= 0 {
		return ctx.Err()
	}
	r.logger.DebugContext(ctx, "batch pause", "wait", r.batchDelay)
	t := time.NewTimer(r.batchDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
