package lock

import (
	"context"

	appinv "github.com/kitchenledger/backend/internal/application/inventory"
)

// Chain acquires the keys from each locker in turn: typically the in-process
// locker first and then the distributed one. Release runs in reverse.
type Chain []appinv.StockLocker

// Lock implements StockLocker
func (c Chain) Lock(ctx context.Context, keys []string) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}

	for _, locker := range c {
		if locker == nil {
			continue
		}
		release, err := locker.Lock(ctx, keys)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}

var _ appinv.StockLocker = Chain(nil)
