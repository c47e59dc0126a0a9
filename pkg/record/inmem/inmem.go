package inmem

import (
	"sort"
	"sync"
	"time"

	"github.com/igolaizola/sigtrader/pkg/record"
)

type messageKey struct {
	chatID    int64
	messageID int
}

// Store keeps records in memory. Stored values are copies so callers can't
// mutate them behind the store's back.
type Store struct {
	lck      sync.Mutex
	seq      uint64
	records  sync.Map
	messages sync.Map
}

func (s *Store) Create(r *record.Record) error {
	s.lck.Lock()
	s.seq++
	r.ID = s.seq
	s.lck.Unlock()
	s.save(r)
	return nil
}

func (s *Store) Update(r *record.Record) error {
	if _, ok := s.records.Load(r.ID); !ok {
		return record.ErrNotFound
	}
	s.save(r)
	return nil
}

func (s *Store) save(r *record.Record) {
	s.records.Store(r.ID, *clone(r))
	s.messages.Store(messageKey{r.ChatID, r.MessageID}, r.ID)
}

func clone(r *record.Record) *record.Record {
	cp := *r
	cp.Positions = nil
	for _, p := range r.Positions {
		pos := *p
		pos.OrderIDs = append([]string(nil), p.OrderIDs...)
		cp.Positions = append(cp.Positions, &pos)
	}
	return &cp
}

func (s *Store) Delete(r *record.Record) error {
	s.records.Delete(r.ID)
	s.messages.Delete(messageKey{r.ChatID, r.MessageID})
	return nil
}

func (s *Store) ByMessage(chatID int64, messageID int) (*record.Record, error) {
	id, ok := s.messages.Load(messageKey{chatID, messageID})
	if !ok {
		return nil, record.ErrNotFound
	}
	v, ok := s.records.Load(id)
	if !ok {
		return nil, record.ErrNotFound
	}
	r := v.(record.Record)
	return clone(&r), nil
}

func (s *Store) Last(chatID int64) (*record.Record, error) {
	var last *record.Record
	s.records.Range(func(key interface{}, value interface{}) bool {
		r := value.(record.Record)
		if r.ChatID != chatID {
			return true
		}
		if last == nil || r.ID > last.ID {
			last = clone(&r)
		}
		return true
	})
	if last == nil {
		return nil, record.ErrNotFound
	}
	return last, nil
}

func (s *Store) List(from time.Time, to time.Time) ([]*record.Record, error) {
	var records []*record.Record
	s.records.Range(func(key interface{}, value interface{}) bool {
		r := value.(record.Record)
		if r.Time.Before(from) || r.Time.After(to) {
			return true
		}
		records = append(records, clone(&r))
		return true
	})
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
