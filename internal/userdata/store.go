// Shelfwise - Personalized Product Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shelfwise

package userdata

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/shelfwise/internal/config"
	"github.com/tomtom215/shelfwise/internal/logging"
	"github.com/tomtom215/shelfwise/internal/recommend"
)

// Key prefixes for BadgerDB storage
const (
	userKeyPrefix        = "user:"
	interactionKeyPrefix = "ix:"
	productKeyPrefix     = "product:"
	popularityKeyPrefix  = "pop:"
	interactionSeqKey    = "seq:interactions"

	// upsertChunk bounds the products written per transaction.
	upsertChunk = 500

	gcDiscardRatio = 0.5
)

// Store persists users, interactions and the product catalog.
type Store interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int) (*User, error)
	DeleteUser(ctx context.Context, id int) error
	AppendInteraction(ctx context.Context, userID int, event InteractionEvent) error
	Interactions(ctx context.Context, userID int) ([]InteractionEvent, error)
	UpsertProducts(ctx context.Context, products []recommend.Product) (int, error)
	Products(ctx context.Context) ([]recommend.Product, error)
	Close() error
}

// BadgerStore implements Store on BadgerDB.
//
// Layout:
//
//	user:<id>                      JSON User
//	ix:<uid>:<unix_nano>:<seq>     JSON InteractionEvent, ordered oldest first
//	product:<id>                   JSON Product (without interaction_count)
//	pop:<id>                       big-endian uint64 interaction count
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// OpenBadgerStore opens the store described by cfg.
func OpenBadgerStore(cfg config.UserDataConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.DataDir)
	}
	opts = opts.WithLogger(badgerLogger{logger: logging.WithComponent("badger")})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerStore(db)
}

// NewBadgerStore wraps an open database. The store owns db from here on.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte(interactionSeqKey), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("interaction sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq}, nil
}

// RunGC reclaims value-log space until badger finds nothing left to
// rewrite. It is a no-op for in-memory stores.
func (s *BadgerStore) RunGC() error {
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log gc: %w", err)
		}
	}
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	return errors.Join(s.seq.Release(), s.db.Close())
}

func userKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", userKeyPrefix, id))
}

func interactionPrefix(userID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", interactionKeyPrefix, userID))
}

// interactionKey zero-pads the timestamp so byte order is time order.
func interactionKey(userID int, ts time.Time, seq uint64) []byte {
	nanos := ts.UnixNano()
	if nanos < 0 {
		nanos = 0
	}
	return []byte(fmt.Sprintf("%s%d:%020d:%020d", interactionKeyPrefix, userID, nanos, seq))
}

func productKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", productKeyPrefix, id))
}

func popularityKey(id int) []byte {
	return []byte(fmt.Sprintf("%s%d", popularityKeyPrefix, id))
}

// CreateUser stores a new user. It fails with ErrUserExists if the id is taken.
func (s *BadgerStore) CreateUser(_ context.Context, user *User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := userKey(user.UserID)
		if _, err := txn.Get(key); err == nil {
			return ErrUserExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("get user: %w", err)
		}
		return txn.Set(key, data)
	})
}

// GetUser retrieves a user by id.
func (s *BadgerStore) GetUser(_ context.Context, id int) (*User, error) {
	var user User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return recommend.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user and every interaction they recorded.
// Popularity counters are kept.
func (s *BadgerStore) DeleteUser(ctx context.Context, id int) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(id)); errors.Is(err, badger.ErrKeyNotFound) {
			return recommend.ErrUserNotFound
		} else if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := interactionPrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("delete interaction: %w", err)
		}
	}
	if err := wb.Delete(userKey(id)); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush delete: %w", err)
	}
	return nil
}

// AppendInteraction records event for userID and bumps the product's
// interaction counter in the same transaction.
func (s *BadgerStore) AppendInteraction(_ context.Context, userID int, event InteractionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal interaction: %w", err)
	}
	seq, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next interaction sequence: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(userID)); errors.Is(err, badger.ErrKeyNotFound) {
			return recommend.ErrUserNotFound
		} else if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		if _, err := txn.Get(productKey(event.ProductID)); errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %d", ErrProductNotFound, event.ProductID)
		} else if err != nil {
			return fmt.Errorf("get product: %w", err)
		}

		if err := txn.Set(interactionKey(userID, event.Timestamp, seq), data); err != nil {
			return fmt.Errorf("set interaction: %w", err)
		}

		count, err := readCounter(txn, popularityKey(event.ProductID))
		if err != nil {
			return err
		}
		return txn.Set(popularityKey(event.ProductID), encodeCounter(count+1))
	})
}

// Interactions returns a user's interactions, oldest first.
func (s *BadgerStore) Interactions(ctx context.Context, userID int) ([]InteractionEvent, error) {
	events := []InteractionEvent{}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(userID)); errors.Is(err, badger.ErrKeyNotFound) {
			return recommend.ErrUserNotFound
		} else if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := interactionPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var ev InteractionEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("decode interaction %s: %w", it.Item().Key(), err)
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpsertProducts writes products in chunks. A product's interaction_count
// only ever raises the stored counter, so re-ingesting a catalog export
// does not erase interactions recorded since.
func (s *BadgerStore) UpsertProducts(ctx context.Context, products []recommend.Product) (int, error) {
	written := 0
	for start := 0; start < len(products); start += upsertChunk {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		chunk := products[start:min(start+upsertChunk, len(products))]

		err := s.db.Update(func(txn *badger.Txn) error {
			for i := range chunk {
				p := chunk[i]
				seed := p.InteractionCount
				p.InteractionCount = 0

				data, err := json.Marshal(&p)
				if err != nil {
					return fmt.Errorf("marshal product %d: %w", p.ProductID, err)
				}
				if err := txn.Set(productKey(p.ProductID), data); err != nil {
					return fmt.Errorf("set product %d: %w", p.ProductID, err)
				}

				if seed <= 0 {
					continue
				}
				current, err := readCounter(txn, popularityKey(p.ProductID))
				if err != nil {
					return err
				}
				if uint64(seed) > current {
					if err := txn.Set(popularityKey(p.ProductID), encodeCounter(uint64(seed))); err != nil {
						return fmt.Errorf("set popularity %d: %w", p.ProductID, err)
					}
				}
			}
			return nil
		})
		if err != nil {
			return written, err
		}
		written += len(chunk)
	}
	return written, nil
}

// Products returns the catalog ordered by product id, with interaction counts.
func (s *BadgerStore) Products(ctx context.Context) ([]recommend.Product, error) {
	products := []recommend.Product{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(productKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var p recommend.Product
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return fmt.Errorf("decode product %s: %w", it.Item().Key(), err)
			}

			count, err := readCounter(txn, popularityKey(p.ProductID))
			if err != nil {
				return err
			}
			p.InteractionCount = int64(count)
			products = append(products, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })
	return products, nil
}

func readCounter(txn *badger.Txn, key []byte) (uint64, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter %s: %w", key, err)
	}

	var n uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("counter %s: malformed value of %d bytes", key, len(val))
		}
		n = binary.BigEndian.Uint64(val)
		return nil
	})
	return n, err
}

func encodeCounter(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

var _ Store = (*BadgerStore)(nil)
