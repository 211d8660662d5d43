// Package session keeps the per-sender pending-confirmation slot. One slot
// per sender, last proposal wins, entries expire so a forgotten "si" days
// later never posts anything.
package session

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alexbco/bot-whatsapp-contabilidad/internal/parser"
)

// Pending is a posting proposal waiting for the sender's confirmation.
type Pending struct {
	Intent        parser.Intent
	Preview       string
	AttachmentRef string
	CreatedAt     time.Time
}

// Store holds at most one Pending per sender.
type Store interface {
	Get(sender string) (Pending, bool)
	Put(sender string, p Pending)
	Delete(sender string)
}

type cacheStore struct {
	cache *gocache.Cache
}

// NewStore builds a TTL-backed store. Entries older than ttl are dropped.
func NewStore(ttl time.Duration) Store {
	return &cacheStore{
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (s *cacheStore) Get(sender string) (Pending, bool) {
	v, ok := s.cache.Get(sender)
	if !ok {
		return Pending{}, false
	}
	p, ok := v.(Pending)
	return p, ok
}

func (s *cacheStore) Put(sender string, p Pending) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.cache.SetDefault(sender, p)
}

func (s *cacheStore) Delete(sender string) {
	s.cache.Delete(sender)
}
