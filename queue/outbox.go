package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mugshot-app/mugshot"
	"github.com/tidwall/buntdb"
)

const mailKeyPrefix = "mail:"

// Outbox is a durable notification queue backed by buntdb. Producers append
// serialized payloads, the worker drains them. Payloads survive restarts
// until a delivery succeeds.
type Outbox struct {
	Buntdb *buntdb.DB
}

var _ mugshot.Producer = (*Outbox)(nil)

func (o *Outbox) CreateIndexes() {
	o.Buntdb.CreateIndex("mail", mailKeyPrefix+"*", buntdb.IndexString)
}

func (o *Outbox) Enqueue(ctx context.Context, payload string) error {
	// nano prefix keeps index order roughly append order
	key := fmt.Sprintf("%s%020d:%s", mailKeyPrefix, time.Now().UnixNano(), uuid.New().String())

	err := o.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, replaced, err := tx.Set(key, payload, nil)
		if err != nil {
			return fmt.Errorf("set payload: %w", err)
		}
		if replaced {
			return fmt.Errorf("rarest uuid collision '%s' (not possible)", key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bunt update: %w", err)
	}
	return nil
}

// Drain hands every queued payload to deliver, removing each one that is
// accepted. Payloads whose delivery fails stay queued for the next sweep.
// Returns the number of delivered payloads and the first delivery error.
func (o *Outbox) Drain(deliver func(payload string) error) (int, error) {
	type entry struct {
		key     string
		payload string
	}
	var entries []entry
	err := o.Buntdb.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("mail", func(key, value string) bool {
			entries = append(entries, entry{key: key, payload: value})
			return true
		})
	})
	if err != nil {
		return 0, fmt.Errorf("bunt view: %w", err)
	}

	delivered := 0
	var firstErr error
	for _, e := range entries {
		if err := deliver(e.payload); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("deliver payload: %w", err)
			}
			continue
		}
		err := o.Buntdb.Update(func(tx *buntdb.Tx) error {
			_, err := tx.Delete(e.key)
			return err
		})
		if err != nil {
			return delivered, fmt.Errorf("remove delivered payload: %w", err)
		}
		delivered++
	}
	return delivered, firstErr
}
