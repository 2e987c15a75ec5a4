package state

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

type badgerEngine struct {
	db     *badger.DB
	prefix string
}

func openBadger(path, prefix string) (*badgerEngine, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(logrus.WithField("state", "badger")).
		WithLoggingLevel(badger.WARNING)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerEngine{
		db:     db,
		prefix: prefix,
	}, nil
}

func (b *badgerEngine) key(session string) []byte {
	return []byte(b.prefix + session)
}

func (b *badgerEngine) Get(session string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(session))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		} else if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

func (b *badgerEngine) Set(session string, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key(session), value)
	})
}

func (b *badgerEngine) Close() error {
	return b.db.Close()
}
