package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var noticesBucket = []byte("notices")

// BoltNoticeLedger persists notice times so the cooldown survives restarts.
// Each guild has a nested bucket keyed by user ID holding a unix nano timestamp.
type BoltNoticeLedger struct {
	db *bolt.DB
}

func OpenBoltNoticeLedger(path string) (*BoltNoticeLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open notice ledger %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(noticesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltNoticeLedger{db: db}, nil
}

func (l *BoltNoticeLedger) LastNotice(guildID, userID string) (time.Time, bool, error) {
	var (
		at    time.Time
		found bool
	)
	err := l.db.View(func(tx *bolt.Tx) error {
		guild := tx.Bucket(noticesBucket).Bucket([]byte(guildID))
		if guild == nil {
			return nil
		}
		v := guild.Get([]byte(userID))
		if len(v) != 8 {
			return nil
		}
		at = time.Unix(0, int64(binary.BigEndian.Uint64(v)))
		found = true
		return nil
	})
	return at, found, err
}

func (l *BoltNoticeLedger) RecordNotice(guildID, userID string, at time.Time) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		guild, err := tx.Bucket(noticesBucket).CreateBucketIfNotExists([]byte(guildID))
		if err != nil {
			return err
		}
		v := make([]byte, 8)
		binary.BigEndian.PutUint64(v, uint64(at.UnixNano()))
		return guild.Put([]byte(userID), v)
	})
}

func (l *BoltNoticeLedger) Close() error {
	return l.db.Close()
}
