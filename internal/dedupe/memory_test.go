package dedupe

import (
	"sync"
	"testing"

	loggerCfg "gitlab.com/nevasik7/alerting/config"
	"gitlab.com/nevasik7/alerting/logger"
)

// --- helpers ---

func newTestLogger() logger.Logger {
	return logger.New(loggerCfg.LoggerCfg{
		Level:  "error",
		Format: "json",
	})
}

// --- tests ---

// First call Seen -> false (new), second -> true (duplicate).
func TestMemoryDedupe_FirstSeenThenDuplicate(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger())
	const id = "0xhash1"

	seen, err := m.Seen(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen {
		t.Fatalf("expected first Seen=false, got true")
	}

	seen, err = m.Seen(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !seen {
		t.Fatalf("expected second Seen=true (duplicate), got false")
	}
}

func TestMemoryDedupe_HitsCounter(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger())

	_, _ = m.Seen("a")
	_, _ = m.Seen("a")
	_, _ = m.Seen("a")
	_, _ = m.Seen("b")

	if got := m.Hits(); got != 2 {
		t.Fatalf("expected 2 duplicate hits, got %d", got)
	}
}

func TestMemoryDedupe_ConcurrentSameID(t *testing.T) {
	t.Parallel()

	m := NewInMemoryDedupe(newTestLogger())
	const id = "same-id"
	const workers = 64

	var wg sync.WaitGroup
	wg.Add(workers)

	var mu sync.Mutex
	var firstCount, dupCount int64

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			seen, err := m.Seen(id)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			if seen {
				dupCount++
			} else {
				firstCount++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if firstCount != 1 {
		t.Fatalf("expected exactly one first insert (false), got %d", firstCount)
	}
	if dupCount != workers-1 {
		t.Fatalf("expected %d duplicates (true), got %d", workers-1, dupCount)
	}
}
