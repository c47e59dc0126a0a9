package bolt

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/igolaizola/sigtrader/pkg/record"
)

var (
	signalsBucket  = []byte("signals")
	messagesBucket = []byte("messages")
)

func New(path string) (*Store, error) {
	// It will be created if it doesn't exist.
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt: couldn't open bolt db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{signalsBucket, messagesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("bolt: couldn't create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

type Store struct {
	db *bolt.DB
}

func (s *Store) Close() error {
	return s.db.Close()
}

func idKey(id uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, id)
	return b
}

func messageKey(chatID int64, messageID int) []byte {
	return []byte(fmt.Sprintf("%d:%d", chatID, messageID))
}

func (s *Store) Create(r *record.Record) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(signalsBucket)
		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		r.ID = id
		return put(tx, r)
	}); err != nil {
		return fmt.Errorf("bolt: couldn't create record: %w", err)
	}
	return nil
}

func (s *Store) Update(r *record.Record) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(signalsBucket).Get(idKey(r.ID)) == nil {
			return record.ErrNotFound
		}
		return put(tx, r)
	}); err != nil {
		return fmt.Errorf("bolt: couldn't update %d: %w", r.ID, err)
	}
	return nil
}

func put(tx *bolt.Tx, r *record.Record) error {
	byt, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("couldn't encode: %w", err)
	}
	if err := tx.Bucket(signalsBucket).Put(idKey(r.ID), byt); err != nil {
		return err
	}
	return tx.Bucket(messagesBucket).Put(messageKey(r.ChatID, r.MessageID), idKey(r.ID))
}

func (s *Store) Delete(r *record.Record) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(signalsBucket).Delete(idKey(r.ID)); err != nil {
			return err
		}
		return tx.Bucket(messagesBucket).Delete(messageKey(r.ChatID, r.MessageID))
	}); err != nil {
		return fmt.Errorf("bolt: couldn't delete %d: %w", r.ID, err)
	}
	return nil
}

func (s *Store) ByMessage(chatID int64, messageID int) (*record.Record, error) {
	var r *record.Record
	if err := s.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(messagesBucket).Get(messageKey(chatID, messageID))
		if id == nil {
			return record.ErrNotFound
		}
		v := tx.Bucket(signalsBucket).Get(id)
		if v == nil {
			return record.ErrNotFound
		}
		var err error
		r, err = decode(v)
		return err
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't get message %d:%d: %w", chatID, messageID, err)
	}
	return r, nil
}

func (s *Store) Last(chatID int64) (*record.Record, error) {
	var r *record.Record
	if err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(signalsBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			candidate, err := decode(v)
			if err != nil {
				return err
			}
			if candidate.ChatID == chatID {
				r = candidate
				return nil
			}
		}
		return record.ErrNotFound
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't get last record of %d: %w", chatID, err)
	}
	return r, nil
}

func (s *Store) List(from time.Time, to time.Time) ([]*record.Record, error) {
	var records []*record.Record
	if err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(signalsBucket).ForEach(func(k, v []byte) error {
			r, err := decode(v)
			if err != nil {
				return err
			}
			if r.Time.Before(from) || r.Time.After(to) {
				return nil
			}
			records = append(records, r)
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("bolt: couldn't query: %w", err)
	}
	return records, nil
}

func decode(v []byte) (*record.Record, error) {
	var r record.Record
	if err := json.Unmarshal(v, &r); err != nil {
		return nil, fmt.Errorf("couldn't decode: %w", err)
	}
	return &r, nil
}
