package swarm

import (
	"context"

	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"

	"kiss/internal/record"
)

// recordDatastore adapts a record.Store to the datastore.Datastore interface
// go-libp2p-kad-dht's provider/record backend expects, the Go counterpart
// of original_source/src/p2p/store.rs's LocalStore (which implements
// libp2p's RecordStore trait by block_on-ing the async IStorage).
type recordDatastore struct {
	adapter *record.BlockingAdapter
}

func newRecordDatastore(store record.Store) *recordDatastore {
	return &recordDatastore{adapter: record.NewBlockingAdapter(store, 0)}
}

func (d *recordDatastore) Get(_ context.Context, key datastore.Key) ([]byte, error) {
	r, err := d.adapter.Get(key.String())
	if err != nil {
		return nil, datastore.ErrNotFound
	}
	return r.Value, nil
}

func (d *recordDatastore) Has(ctx context.Context, key datastore.Key) (bool, error) {
	_, err := d.Get(ctx, key)
	if err != nil {
		if err == datastore.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (d *recordDatastore) GetSize(ctx context.Context, key datastore.Key) (int, error) {
	v, err := d.Get(ctx, key)
	if err != nil {
		return -1, err
	}
	return len(v), nil
}

func (d *recordDatastore) Put(_ context.Context, key datastore.Key, value []byte) error {
	return d.adapter.Put(record.Record{Key: key.String(), Value: value})
}

func (d *recordDatastore) Delete(_ context.Context, key datastore.Key) error {
	return nil // no-op: records are never removed through this adapter, and it does not check record.Record.Expired
}

func (d *recordDatastore) Sync(context.Context, datastore.Key) error { return nil }

func (d *recordDatastore) Close() error { return nil }

// Query is unsupported: the record store is keyed by DHT record key, not
// range-scannable, matching the upstream LocalStore which never implements
// RecordStore::records() either.
func (d *recordDatastore) Query(context.Context, query.Query) (query.Results, error) {
	return query.ResultsWithEntries(query.Query{}, nil), nil
}
