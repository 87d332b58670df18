package css

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// SelectEach runs Select for every root in parallel. Results are in the order of roots.
// It stops at the first error or when ctx is done.
func (e *Engine) SelectEach(ctx context.Context, selector string, roots []Node) ([][]Node, error) {
	out := make([][]Node, len(roots))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, root := range roots {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ns, err := e.Select(selector, root)
			out[i] = ns
			return err
		})
	}
	return out, g.Wait()
}
