package storage

import (
	"sync"
	"time"
)

type noticeKey struct {
	guildID string
	userID  string
}

// MemoryNoticeLedger remembers when each member was last sent a quiet-time
// notice. Its content is lost on restart.
type MemoryNoticeLedger struct {
	mu   sync.Mutex
	last map[noticeKey]time.Time
}

func NewMemoryNoticeLedger() *MemoryNoticeLedger {
	return &MemoryNoticeLedger{last: make(map[noticeKey]time.Time)}
}

func (l *MemoryNoticeLedger) LastNotice(guildID, userID string) (time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.last[noticeKey{guildID, userID}]
	return t, ok, nil
}

func (l *MemoryNoticeLedger) RecordNotice(guildID, userID string, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.last[noticeKey{guildID, userID}] = at
	return nil
}

func (l *MemoryNoticeLedger) Close() error {
	return nil
}
