package testutil

import (
	"context"
	"testing"
	"time"
)

// WaitForCleanup polls check until it returns true or timeout elapses, used
// to confirm server-side teardown after a disconnect in integration tests
// without a fixed time.Sleep.
//
// Example:
//
//	client.Close()
//	testutil.WaitForCleanup(t, func() bool {
//	    return srv.PlayerCount() == 0
//	}, 5*time.Second)
func WaitForCleanup(t testing.TB, check func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("cleanup timeout: condition not met within %v", timeout)
		case <-ticker.C:
			if check() {
				return
			}
		}
	}
}
