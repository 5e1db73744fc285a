package category

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const learnedBucketName = "learned_keywords"

// LearnedKeyword is a keyword reinforced from user-confirmed merchant categories.
type LearnedKeyword struct {
	Category   string    `json:"category"`
	Keyword    string    `json:"keyword"`
	UsageCount int       `json:"usage_count"`
	LastUsed   time.Time `json:"last_used"`
}

// LearnedStore persists learned keywords.
type LearnedStore interface {
	// Reinforce increments the usage count of (keyword, category), inserting
	// it with a count of 1 when absent. The update is atomic.
	Reinforce(keyword, category string, at time.Time) (LearnedKeyword, error)

	// List returns every learned keyword.
	List() ([]LearnedKeyword, error)

	// Reset deletes every learned keyword.
	Reset() error
}

// BoltStore implements LearnedStore on a bbolt bucket.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates the learned keyword bucket in db if needed.
func NewBoltStore(db *bbolt.DB) (*BoltStore, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(learnedBucketName))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating learned keyword bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func learnedKey(keyword, category string) []byte {
	return []byte(category + "\x00" + keyword)
}

// Reinforce increments or inserts inside a single write transaction; bbolt
// allows one writer at a time so concurrent calls cannot lose increments.
func (b *BoltStore) Reinforce(keyword, category string, at time.Time) (LearnedKeyword, error) {
	canonical, ok := Canonical(category)
	if !ok {
		return LearnedKeyword{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if keyword == "" {
		return LearnedKeyword{}, fmt.Errorf("empty keyword")
	}

	var entry LearnedKeyword
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(learnedBucketName))
		key := learnedKey(keyword, canonical)

		if data := bucket.Get(key); data != nil {
			if err := json.Unmarshal(data, &entry); err != nil {
				return fmt.Errorf("unmarshaling learned keyword: %w", err)
			}
			entry.UsageCount++
		} else {
			entry = LearnedKeyword{Category: canonical, Keyword: keyword, UsageCount: 1}
		}
		entry.LastUsed = at

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("marshaling learned keyword: %w", err)
		}
		return bucket.Put(key, data)
	})
	if err != nil {
		return LearnedKeyword{}, err
	}
	return entry, nil
}

// List returns learned keywords ordered by category, then keyword.
func (b *BoltStore) List() ([]LearnedKeyword, error) {
	entries := make([]LearnedKeyword, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(learnedBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var entry LearnedKeyword
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("unmarshaling learned keyword: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Reset drops and recreates the bucket.
func (b *BoltStore) Reset() error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(learnedBucketName)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("deleting learned keyword bucket: %w", err)
		}
		_, err := tx.CreateBucket([]byte(learnedBucketName))
		return err
	})
}
