// Package swapdb implements the durable, per-swap Event Store. It
// follows channeldb/db.go's shape: a single bbolt file,
// top-level buckets created on Open, and callers that never see a *bolt.Tx
// outside this package.
package swapdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/comit-network/swapd/swap"
	"go.etcd.io/bbolt"
)

const (
	dbName           = "swaps.db"
	dbFilePermission = 0600
)

var (
	swapsBucket   = []byte("swaps")
	peersBucket   = []byte("active-peers")
	historyBucket = []byte("history")
	metaBucket    = []byte("meta")

	keyIndexKey = []byte("next-transient-key-index")
)

// DB is the primary datastore for the swap daemon: one record per active
// swap, one entry per pinned counterparty, one row per closed swap's
// history, and a single monotonic transient-key counter.
type DB struct {
	bolt   *bbolt.DB
	dbPath string

	// mu serializes the read-modify-write CAS cycle for a given bucket.
	// bbolt already serializes writers at the transaction level; this
	// additionally keeps the "read record, decide, write record" step
	// atomic from the caller's point of view, mirroring
	// htlcswitch/switch_control.go's paymentControl.mx.
	mu sync.Mutex
}

// Open opens (creating if necessary) the swap database rooted at dbPath.
func Open(dbPath string) (*DB, error) {
	path := filepath.Join(dbPath, dbName)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dbPath, 0700); err != nil {
			return nil, fmt.Errorf("create swapdb dir: %w", err)
		}
	}

	bdb, err := bbolt.Open(path, dbFilePermission, nil)
	if err != nil {
		return nil, fmt.Errorf("open swapdb: %w", err)
	}

	db := &DB{bolt: bdb, dbPath: dbPath}
	if err := db.createBuckets(); err != nil {
		bdb.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) createBuckets() error {
	return d.bolt.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{swapsBucket, peersBucket, historyBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// Close releases the underlying bbolt file handle.
func (d *DB) Close() error {
	return d.bolt.Close()
}

// record is the JSON-serialized layout persisted per swap:
//
//	{ params: SwapParams,
//	  hbit_funded?, hbit_redeemed?, hbit_refunded?,
//	  herc20_deployed?, herc20_funded?, herc20_redeemed?, herc20_refunded? }
type record struct {
	Params swap.SwapParams `json:"params"`

	HbitFunded   *swap.HbitFunded   `json:"hbit_funded,omitempty"`
	HbitRedeemed *swap.HbitRedeemed `json:"hbit_redeemed,omitempty"`
	HbitRefunded *swap.HbitRefunded `json:"hbit_refunded,omitempty"`

	Herc20Deployed *swap.Herc20Deployed `json:"herc20_deployed,omitempty"`
	Herc20Funded   *swap.Herc20Funded   `json:"herc20_funded,omitempty"`
	Herc20Redeemed *swap.Herc20Redeemed `json:"herc20_redeemed,omitempty"`
	Herc20Refunded *swap.Herc20Refunded `json:"herc20_refunded,omitempty"`
}

func (d *DB) readRecord(tx *bbolt.Tx, id swap.Id) (*record, error) {
	bucket := tx.Bucket(swapsBucket)
	raw := bucket.Get(id[:])
	if raw == nil {
		return nil, ErrSwapNotFound
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode swap record %s: %w", id, err)
	}
	return &rec, nil
}

func (d *DB) writeRecord(tx *bbolt.Tx, id swap.Id, rec *record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode swap record %s: %w", id, err)
	}
	return tx.Bucket(swapsBucket).Put(id[:], raw)
}

// CreateSwap inserts a brand-new swap with an empty event set. It fails
// if the swap id already exists.
func (d *DB) CreateSwap(params swap.SwapParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(swapsBucket)
		if bucket.Get(params.SwapId[:]) != nil {
			return fmt.Errorf("%w: %s", ErrSwapAlreadyExists, params.SwapId)
		}

		rec := &record{Params: params}
		return d.writeRecord(tx, params.SwapId, rec)
	})
}

// LoadParams returns the immutable parameters of a previously created
// swap.
func (d *DB) LoadParams(id swap.Id) (swap.SwapParams, error) {
	var params swap.SwapParams
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		rec, err := d.readRecord(tx, id)
		if err != nil {
			return err
		}
		params = rec.Params
		return nil
	})
	return params, err
}

// DeleteSwap removes the swap's record once its outcome has been
// recorded to history.
func (d *DB) DeleteSwap(id swap.Id) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapsBucket).Delete(id[:])
	})
}

// AllSwapIds lists every swap currently present, used at startup to
// resume interrupted state machines: after restart, the state machine
// loads all events and resumes.
func (d *DB) AllSwapIds() ([]swap.Id, error) {
	var ids []swap.Id
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(swapsBucket).ForEach(func(k, _ []byte) error {
			var id swap.Id
			copy(id[:], k)
			ids = append(ids, id)
			return nil
		})
	})
	return ids, err
}
