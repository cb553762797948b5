package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChurchLocks(t *testing.T) {
	l := newChurchLocks()

	unlock := l.lock("c1")

	// Another church is independent.
	unlockOther := l.lock("c2")
	unlockOther()

	acquired := make(chan struct{})
	go func() {
		release := l.lock("c1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same church acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks, "released entries are dropped")
}
