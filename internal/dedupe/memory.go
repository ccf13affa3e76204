package dedupe

import (
	"sync"

	"gitlab.com/nevasik7/alerting/logger"
)

// MemoryDedupe is a session-scoped hash set. Ingestion sessions are bounded
// (one file set), so entries live until the index is discarded; no TTL or
// janitor needed.
type MemoryDedupe struct {
	log  logger.Logger
	mu   sync.Mutex
	seen map[string]struct{}
	hits int64
}

func NewInMemoryDedupe(log logger.Logger) *MemoryDedupe {
	return &MemoryDedupe{
		log:  log,
		seen: make(map[string]struct{}, 1024),
	}
}

func (m *MemoryDedupe) Seen(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[id]; ok {
		m.hits++
		m.log.Debugf("Duplicate transaction hash skipped: %s", id)
		return true, nil
	}
	m.seen[id] = struct{}{}
	return false, nil
}

// Hits reports how many duplicates were skipped this session.
func (m *MemoryDedupe) Hits() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}
