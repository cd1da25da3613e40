package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stephennewman/contextmemo/internal/common"
	"github.com/stephennewman/contextmemo/internal/interfaces"
)

// envelope is the internal structure stored in Badger
type envelope struct {
	ID           string           `json:"id"`
	Event        interfaces.Event `json:"event"`
	EnqueuedAt   time.Time        `json:"enqueued_at"`
	VisibleAt    time.Time        `json:"visible_at"`
	ReceiveCount int              `json:"receive_count"`
}

// DropFunc is invoked when a message exhausts its receive limit and is
// removed from the queue
type DropFunc func(event *interfaces.Event, receiveCount int)

// Bus is a persistent event queue backed by BadgerDB. Messages become
// visible at VisibleAt, which realizes both delayed delivery and the
// redelivery window for in-flight messages.
type Bus struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
	onDrop            DropFunc
}

// NewBus creates a new Badger-backed event bus
func NewBus(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int) (*Bus, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &Bus{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// SetDropHandler installs a callback for messages removed at the receive
// limit. Must be called before workers start.
func (b *Bus) SetDropHandler(fn DropFunc) {
	b.onDrop = fn
}

// Publish enqueues an event for immediate delivery
func (b *Bus) Publish(ctx context.Context, event *interfaces.Event) error {
	return b.PublishAt(ctx, event, time.Now())
}

// PublishAt enqueues an event that stays invisible until the given time
func (b *Bus) PublishAt(ctx context.Context, event *interfaces.Event, at time.Time) error {
	if event.ID == "" {
		event.ID = common.NewEventID()
	}

	env := envelope{
		ID:         event.ID,
		Event:      *event,
		EnqueuedAt: time.Now(),
		VisibleAt:  at,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Message data lives at queue:{name}:msg:{id}; a separate visibility
	// index key queue:{name}:index:{visibleAt}:{id} gives ordered scans
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(b.msgKey(env.ID), data); err != nil {
			return err
		}
		return txn.Set(b.indexKey(env.VisibleAt, env.ID), []byte{})
	})
}

// Receive pulls the next visible event from the queue. The returned ack
// function removes the message; unacked messages become visible again after
// the visibility timeout. Returns interfaces.ErrNoMessage when empty.
func (b *Bus) Receive(ctx context.Context) (*interfaces.Event, func() error, error) {
	var env envelope
	var msgID string
	var oldIndexKey []byte
	var dropped []envelope

	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", b.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		found := false

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)

			ts, id, err := b.parseIndexKey(key)
			if err != nil {
				continue
			}

			// Keys sort by timestamp, a future entry means nothing later is ready
			if ts.After(now) {
				break
			}

			itemMsg, err := txn.Get(b.msgKey(id))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					// Orphaned index entry, clean it up
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			if err := itemMsg.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}

			if env.ReceiveCount >= b.maxReceive {
				// Poison message, remove it and surface the drop
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(b.msgKey(id)); err != nil {
					return err
				}
				dropped = append(dropped, env)
				continue
			}

			found = true
			msgID = id
			oldIndexKey = key
			break
		}

		if !found {
			return interfaces.ErrNoMessage
		}

		// Claim: bump receive count and push visibility into the future
		env.ReceiveCount++
		env.VisibleAt = time.Now().Add(b.visibilityTimeout)

		newData, err := json.Marshal(env)
		if err != nil {
			return err
		}
		if err := txn.Set(b.msgKey(msgID), newData); err != nil {
			return err
		}

		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(b.indexKey(env.VisibleAt, msgID), []byte{})
	})

	// Drops committed inside the transaction are reported after it
	if b.onDrop != nil {
		for i := range dropped {
			b.onDrop(&dropped[i].Event, dropped[i].ReceiveCount)
		}
	}

	if err != nil {
		return nil, nil, err
	}

	ack := func() error {
		return b.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(b.msgKey(msgID))
			if err != nil {
				if err == badger.ErrKeyNotFound {
					return nil // Already deleted
				}
				return err
			}

			var current envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}

			if err := txn.Delete(b.indexKey(current.VisibleAt, msgID)); err != nil {
				if err != badger.ErrKeyNotFound {
					return err
				}
			}
			return txn.Delete(b.msgKey(msgID))
		})
	}

	event := env.Event
	return &event, ack, nil
}

// Close closes the bus (no-op, the database is managed externally)
func (b *Bus) Close() error {
	return nil
}

func (b *Bus) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", b.queueName, id))
}

func (b *Bus) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so string ordering matches numeric ordering
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", b.queueName, visibleAt.UnixNano(), id))
}

func (b *Bus) parseIndexKey(key []byte) (time.Time, string, error) {
	prefixStr := fmt.Sprintf("queue:%s:index:", b.queueName)
	if len(key) <= len(prefixStr) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefixStr):])
	if len(suffix) < 21 { // 20 digits + 1 colon
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	tsStr := suffix[:20]
	id := suffix[21:]

	var ts int64
	if _, err := fmt.Sscanf(tsStr, "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), id, nil
}
