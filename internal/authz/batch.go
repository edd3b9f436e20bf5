package authz

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchAuthorize runs every request concurrently and returns one
// BatchResult per request, in the same order as reqs, generalizing
// get_permitted_actions_batch's single round-trip optimization: rather
// than a caller issuing N sequential Authorize calls (each of which may
// itself execute several per-rule queries), the N requests fan out
// together and the caller waits once.
//
// A single request's failure does not cancel its siblings — each
// BatchResult carries its own Err so a caller can distinguish "resource
// type unknown for request 7" from "authorized zero resources".
func (r *Runner) BatchAuthorize(ctx context.Context, reqs []BatchRequest, maxConcurrency int) ([]BatchResult, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}

	results := make([]BatchResult, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, br := range reqs {
		i, br := i, br
		g.Go(func() error {
			set, err := r.Authorize(gctx, br.Request)
			results[i] = BatchResult{Key: br.Key, Set: set, Err: err}
			return nil
		})
	}

	// g.Wait's error is always nil here since each goroutine captures
	// its own failure into results[i] rather than returning it, but we
	// still call it to block until every request completes.
	_ = g.Wait()
	return results, nil
}
