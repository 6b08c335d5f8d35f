// Package resilience groups the fault tolerance helpers used by the relay.
//
// The subpackages cover:
//   - circuitbreaker: gobreaker wrappers for source, summary and store calls
//   - retry: bounded retry loops with context-aware waits
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.StoreConfig())
//	var n int64
//	err := retry.WithBackoff(ctx, retry.StoreConfig(3, 2*time.Second), func() error {
//	    var err error
//	    n, err = circuitbreaker.Call(cb, func() (int64, error) {
//	        return store.Count(ctx)
//	    })
//	    return err
//	})
package resilience
