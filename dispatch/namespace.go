// Namespace pool (glossary term; spec.md §6, CREATE_RUNTIME/DISPOSE_RUNTIME
// namespaceId): a cache of soft-disposed runtimes that a later
// CREATE_RUNTIME for the same namespaceId can reclaim instead of paying
// isolate-construction cost again. Backed by buntdb for the TTL bookkeeping
// — an in-memory instance whose keys expire on their own per
// `buntdb.SetOptions{Expires, TTL}`, exactly the glossary's "cache of
// disposed runtimes" — with the live *Isolate values held in a plain map
// alongside it, since a Go object with running goroutines can't itself be
// a buntdb value.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/tidwall/buntdb"
	"golang.org/x/sync/singleflight"
)

// NamespacePool implements the warm-reuse cache described above.
type NamespacePool struct {
	db  *buntdb.DB
	ttl time.Duration

	mu   sync.Mutex
	live map[string]*Isolate

	sf singleflight.Group
}

func NewNamespacePool(ttl time.Duration) (*NamespacePool, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	return &NamespacePool{db: db, ttl: ttl, live: make(map[string]*Isolate)}, nil
}

// Put soft-disposes iso into the pool under namespaceID, with a fresh TTL.
func (p *NamespacePool) Put(namespaceID string, iso *Isolate) error {
	p.mu.Lock()
	p.live[namespaceID] = iso
	p.mu.Unlock()
	return p.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(namespaceID, "1", &buntdb.SetOptions{Expires: true, TTL: p.ttl})
		return err
	})
}

// Take reclaims a pooled isolate for namespaceID if one is present and has
// not expired, removing it from the pool. The second return reports
// whether a reusable isolate was found.
func (p *NamespacePool) Take(namespaceID string) (*Isolate, bool) {
	v, err, _ := p.sf.Do(namespaceID, func() (interface{}, error) {
		if err := p.db.View(func(tx *buntdb.Tx) error {
			_, err := tx.Get(namespaceID)
			return err
		}); err != nil {
			return nil, err // includes buntdb.ErrNotFound on expiry/absence
		}
		p.mu.Lock()
		iso := p.live[namespaceID]
		delete(p.live, namespaceID)
		p.mu.Unlock()
		_ = p.db.Update(func(tx *buntdb.Tx) error {
			_, err := tx.Delete(namespaceID)
			return err
		})
		return iso, nil
	})
	if err != nil || v == nil {
		return nil, false
	}
	iso, ok := v.(*Isolate)
	return iso, ok && iso != nil
}

// Sweep drops live entries whose buntdb key has already expired — buntdb
// expires keys lazily, so this is what actually reclaims memory for
// isolates nobody ever asked to reuse. Meant to be called periodically by
// the housekeeper.
func (p *NamespacePool) Sweep() (reaped int) {
	p.mu.Lock()
	ids := make([]string, 0, len(p.live))
	for id := range p.live {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		err := p.db.View(func(tx *buntdb.Tx) error {
			_, err := tx.Get(id)
			return err
		})
		if errors.Is(err, buntdb.ErrNotFound) {
			p.mu.Lock()
			delete(p.live, id)
			p.mu.Unlock()
			reaped++
		}
	}
	return reaped
}

func (p *NamespacePool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

func (p *NamespacePool) Close() error { return p.db.Close() }
