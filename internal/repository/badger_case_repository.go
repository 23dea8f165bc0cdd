package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"

	"github.com/spec-kit/case-service/internal/domain"
)

var (
	caseKeyPrefix    = []byte("case:")
	historyKeyPrefix = []byte("history:")
)

// Values are CBOR with RFC 3339 nano timestamps so no precision is lost.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	var err error
	cborEnc, err = encOptions.EncMode()
	if err != nil {
		panic("repository: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("repository: CBOR decoder initialization failed: " + err.Error())
	}
}

type badgerCaseStore struct {
	db *badger.DB
}

// NewBadgerCaseStore stores one key per case under the "case:" prefix.
func NewBadgerCaseStore(db *badger.DB) CaseStore {
	return &badgerCaseStore{db: db}
}

func (s *badgerCaseStore) LoadAll(ctx context.Context) ([]domain.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cases := []domain.Case{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: caseKeyPrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var c domain.Case
			if err := it.Item().Value(func(val []byte) error {
				return cborDec.Unmarshal(val, &c)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			cases = append(cases, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// SaveAll rewrites the collection in a single transaction, dropping keys
// for cases no longer present.
func (s *badgerCaseStore) SaveAll(ctx context.Context, cases []domain.Case) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keep := make(map[string]struct{}, len(cases))
	for _, c := range cases {
		keep[string(caseKey(c.ID))] = struct{}{}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: caseKeyPrefix})
		var stale [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if _, ok := keep[string(key)]; !ok {
				stale = append(stale, key)
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, c := range cases {
			val, err := cborEnc.Marshal(c)
			if err != nil {
				return fmt.Errorf("encode case %s: %w", c.ID, err)
			}
			if err := txn.Set(caseKey(c.ID), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *badgerCaseStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return fmt.Errorf("badger database closed")
	}
	return nil
}

type badgerHistoryLog struct {
	db *badger.DB
}

// NewBadgerHistoryLog keys events by timestamp so iteration follows append
// order.
func NewBadgerHistoryLog(db *badger.DB) HistoryLog {
	return &badgerHistoryLog{db: db}
}

func (l *badgerHistoryLog) Append(ctx context.Context, event domain.HistoryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := cborEnc.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode history event %s: %w", event.ID, err)
	}
	key := fmt.Appendf(append([]byte{}, historyKeyPrefix...), "%020d:%s", event.Timestamp.UnixNano(), event.ID)
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (l *badgerHistoryLog) Query(ctx context.Context, caseID string) ([]domain.HistoryEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events := []domain.HistoryEvent{}
	err := l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: historyKeyPrefix})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			var event domain.HistoryEvent
			if err := it.Item().Value(func(val []byte) error {
				return cborDec.Unmarshal(val, &event)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newestFirst(events, caseID), nil
}

func caseKey(id string) []byte {
	return append(append([]byte{}, caseKeyPrefix...), id...)
}
