package cachesync

import "time"

// Kind names the action peers apply to a cache entry.
type Kind string

const (
	KindInvalidate Kind = "invalidate"
	KindUpdate     Kind = "update"
)

// Valid reports whether k is a known command kind.
func (k Kind) Valid() bool {
	return k == KindInvalidate || k == KindUpdate
}

// Command is the message broadcast to every connected peer.
type Command struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Key      string    `json:"key"`
	IssuedAt time.Time `json:"issuedAt"`
}
