package reactive

import "testing"

func TestSingleThreadGuardPanicsOnReentrantLock(t *testing.T) {
	g := &singleThreadGuard{}
	g.Lock()
	defer func() {
		if recover() == nil {
			t.Fatal("expected Lock to panic on re-entrant acquisition")
		}
	}()
	g.Lock()
}

func TestSingleThreadGuardLockUnlockRoundTrip(t *testing.T) {
	g := &singleThreadGuard{}
	g.Lock()
	g.Unlock()
	g.Lock()
	g.Unlock()
}
