package record

import "time"

type Store interface {
	// Create assigns the record ID.
	Create(*Record) error
	Update(*Record) error
	Delete(*Record) error
	ByMessage(chatID int64, messageID int) (*Record, error)
	// Last returns the most recent record of a chat.
	Last(chatID int64) (*Record, error)
	List(from time.Time, to time.Time) ([]*Record, error)
}
