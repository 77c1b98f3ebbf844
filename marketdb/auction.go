package marketdb

import (
	"bytes"
	"fmt"
	"io"

	"github.com/openassets/auctionhouse/auction"
	"github.com/openassets/auctionhouse/event"
	"go.etcd.io/bbolt"
)

var (
	// auctionsBucketKey is a bucket that contains all auctions that are
	// currently live. This bucket is keyed by the derived auction ID and
	// leads to a nested sub-bucket that houses information for that
	// auction.
	auctionsBucketKey = []byte("auctions")

	// auctionKey is the key that stores the serialized auction record. It
	// is nested within the sub-bucket for each live auction.
	//
	// path: auctionsBucketKey -> auctionBucket[id] -> auctionKey
	auctionKey = []byte("auction")
)

// auctionCallback is a function type that is used to pass as a callback into
// the store's fetch functions to deliver the results to the caller.
type auctionCallback func(id auction.ID, rawAuction []byte) error

// CreateAuction stores an auction by using its derived ID as the key. If a
// record with the same ID already exists it is replaced in place; the
// previous terms and any unsold remainder are discarded.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) CreateAuction(a *auction.Auction) error {
	return db.Update(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}

		var w bytes.Buffer
		if err := serializeAuction(&w, a); err != nil {
			return err
		}

		// Record a creation event even when replacing: the replaced
		// record's history stays in the global event log.
		return storeAuctionTX(
			rootBucket, a.ID(), w.Bytes(), NewCreatedEvent(a),
		)
	})
}

// RestoreAuction writes back a pre-settlement snapshot after the external
// transfers of the given sale failed, without recording a creation event.
// Before writing, the stored state is checked to still be exactly what
// SettleSale left behind for that sale: the record decremented by the sale
// quantity, or absent if that exhausted it. If anything else mutated the
// record in the meantime, auction.ErrStaleSnapshot is returned and the
// newer state is kept. A cancellation or nested sale committed by a
// reentrant call therefore survives the rollback.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) RestoreAuction(snapshot *auction.Auction,
	sale *auction.Sale) error {

	return db.Update(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}

		id := snapshot.ID()
		auctionBucket := rootBucket.Bucket(id[:])

		// The record must look exactly like the settlement left it. The
		// serialization format is deterministic, so the comparison can
		// be done on the raw bytes.
		expected := snapshot.Copy()
		expected.RemainingQuantity -= sale.Quantity
		switch {
		// The settlement exhausted the quantity and deleted the
		// record. A record that exists now was put there by somebody
		// else.
		case expected.RemainingQuantity == 0:
			if auctionBucket != nil {
				return auction.ErrStaleSnapshot
			}

		case auctionBucket == nil:
			return auction.ErrStaleSnapshot

		default:
			var expectedBytes bytes.Buffer
			err := serializeAuction(&expectedBytes, expected)
			if err != nil {
				return err
			}
			stored := auctionBucket.Get(auctionKey)
			if !bytes.Equal(stored, expectedBytes.Bytes()) {
				return auction.ErrStaleSnapshot
			}
		}

		var w bytes.Buffer
		if err := serializeAuction(&w, snapshot); err != nil {
			return err
		}
		return storeAuctionTX(rootBucket, id, w.Bytes(), nil)
	})
}

// GetAuction returns the live auction with the given ID. If no such record
// exists, auction.ErrNoAuction is returned.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) GetAuction(id auction.ID) (*auction.Auction, error) {
	var (
		a        *auction.Auction
		callback = func(id auction.ID, rawAuction []byte) error {
			var err error
			a, err = deserializeAuction(
				bytes.NewReader(rawAuction),
			)
			return err
		}
	)
	err := db.View(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}
		return fetchAuctionTX(rootBucket, id, callback)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAuctions returns all auctions that are currently live.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) GetAuctions() ([]*auction.Auction, error) {
	var (
		auctions []*auction.Auction
		callback = func(id auction.ID, rawAuction []byte) error {
			a, err := deserializeAuction(
				bytes.NewReader(rawAuction),
			)
			if err != nil {
				return err
			}
			auctions = append(auctions, a)
			return nil
		}
	)
	err := db.View(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}

		// We'll now traverse the root bucket for all auctions. The
		// primary key is the auction ID itself.
		return rootBucket.ForEach(func(idBytes, val []byte) error {
			// Only go into things that we know are sub-bucket
			// keys.
			if val != nil {
				return nil
			}

			var id auction.ID
			copy(id[:], idBytes)
			return fetchAuctionTX(rootBucket, id, callback)
		})
	})
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// SettleSale applies a sale to the referenced auction: the remaining
// quantity is decremented by the sale quantity and the record is deleted in
// the same transaction if it reaches zero. The sale record itself is not
// persisted here, that only happens through RecordSale once the external
// transfers of the settlement have gone through.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) SettleSale(sale *auction.Sale) error {
	return db.Update(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}

		var a *auction.Auction
		callback := func(id auction.ID, rawAuction []byte) error {
			a, err = deserializeAuction(
				bytes.NewReader(rawAuction),
			)
			return err
		}
		if err := fetchAuctionTX(
			rootBucket, sale.AuctionID, callback,
		); err != nil {
			return err
		}

		if sale.Quantity > a.RemainingQuantity {
			return fmt.Errorf("%w: sale quantity %d exceeds "+
				"remaining %d", auction.ErrInvalidAmount,
				sale.Quantity, a.RemainingQuantity)
		}

		auctionBucket := rootBucket.Bucket(sale.AuctionID[:])
		a.RemainingQuantity -= sale.Quantity
		if a.RemainingQuantity == 0 {
			return rootBucket.DeleteBucket(sale.AuctionID[:])
		}

		var w bytes.Buffer
		if err := serializeAuction(&w, a); err != nil {
			return err
		}
		return auctionBucket.Put(auctionKey, w.Bytes())
	})
}

// RecordSale persists a sale record to the global event log. If the auction
// that produced the sale is still live, a reference is added to its bucket
// as well. A sale that concluded its auction only lives in the global log.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) RecordSale(sale *auction.Sale) error {
	return db.Update(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}

		auctionBucket := rootBucket.Bucket(sale.AuctionID[:])
		if auctionBucket != nil {
			return storeEventTX(auctionBucket, NewSaleEvent(sale))
		}

		evtBucket, err := getBucket(tx, eventBucketKey)
		if err != nil {
			return err
		}
		return event.StoreEvent(evtBucket, NewSaleEvent(sale))
	})
}

// RemoveAuction deletes the record with the given ID and persists a
// cancellation record. If no such record exists, auction.ErrNoAuction is
// returned.
//
// NOTE: This is part of the auction.Store interface.
func (db *DB) RemoveAuction(id auction.ID) error {
	return db.Update(func(tx *bbolt.Tx) error {
		rootBucket, err := getBucket(tx, auctionsBucketKey)
		if err != nil {
			return err
		}

		auctionBucket := rootBucket.Bucket(id[:])
		if auctionBucket == nil {
			return auction.ErrNoAuction
		}

		// The cancellation record outlives the auction bucket in the
		// global event log.
		evt := NewCanceledEvent(id)
		if err := storeEventTX(auctionBucket, evt); err != nil {
			return err
		}

		// Delete the whole auction bucket with all of its sub
		// buckets.
		return rootBucket.DeleteBucket(id[:])
	})
}

// storeAuctionTX saves a byte serialized auction in its specific sub bucket
// within the root auctions bucket. An existing record under the same ID is
// overwritten. The event is optional and skipped when nil.
func storeAuctionTX(rootBucket *bbolt.Bucket, id auction.ID,
	auctionBytes []byte, evt event.Event) error {

	// From the root bucket, we'll make a new sub auction bucket using
	// the auction ID.
	auctionBucket, err := rootBucket.CreateBucketIfNotExists(id[:])
	if err != nil {
		return err
	}

	// Add the event to the global event store but also add a reference to
	// it in the auction bucket.
	if err := storeEventTX(auctionBucket, evt); err != nil {
		return err
	}

	// With the auction bucket created, we'll store the record itself.
	return auctionBucket.Put(auctionKey, auctionBytes)
}

// fetchAuctionTX fetches the binary data of one auction specified by its ID
// from the root auctions bucket.
func fetchAuctionTX(rootBucket *bbolt.Bucket, id auction.ID,
	callback auctionCallback) error {

	// Get the main auction bucket next.
	auctionBucket := rootBucket.Bucket(id[:])
	if auctionBucket == nil {
		return auction.ErrNoAuction
	}

	// With the main auction bucket obtained, we'll grab the raw record
	// bytes and pass them back to the caller.
	auctionBytes := auctionBucket.Get(auctionKey)
	if auctionBytes == nil {
		return fmt.Errorf("auction bucket not found")
	}
	if callback == nil {
		return nil
	}

	return callback(id, auctionBytes)
}

// serializeAuction binary serializes an auction record to a writer.
func serializeAuction(w io.Writer, a *auction.Auction) error {
	// We don't serialize the ID as it's the sub bucket name and can be
	// re-derived from the key fields.
	return WriteElements(
		w, a.Seller, a.AssetRegistry, a.AssetUnit, a.AssetKind,
		a.StartingPrice, a.EndingPrice, a.StartedAt, a.Duration,
		a.RemainingQuantity, a.PaymentMedium,
	)
}

// deserializeAuction deserializes an auction record from the binary storage
// format. The ID is re-derived from the deserialized key fields.
func deserializeAuction(r io.Reader) (*auction.Auction, error) {
	var (
		seller   auction.Identity
		registry auction.RegistryID
		unit     auction.UnitID
	)
	if err := ReadElements(r, &seller, &registry, &unit); err != nil {
		return nil, err
	}

	a := auction.NewAuction(seller, registry, unit)
	err := ReadElements(
		r, &a.AssetKind, &a.StartingPrice, &a.EndingPrice,
		&a.StartedAt, &a.Duration, &a.RemainingQuantity,
		&a.PaymentMedium,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}
