package lifecycle

import "context"

// Optimizer brings destination tables in shape after a run that
// changed them.
type Optimizer interface {
	// Optimize reclaims space left by replaced rows and refreshes
	// planner statistics of the given tables.
	Optimize(ctx context.Context, tables []string) error
}
