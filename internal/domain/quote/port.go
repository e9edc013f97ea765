package quote

import "context"

// Source looks up a live quote for one ticker symbol.
type Source interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}
