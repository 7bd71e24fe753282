package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/naveenspark/storefront/internal/kvstore"
)

// Persisted state location.
const (
	Namespace  = "storefront"
	SessionKey = "session"
)

// KVPersister stores the session as a JSON blob in a kvstore.Store.
type KVPersister struct {
	store kvstore.Store
}

// NewKVPersister returns a Persister backed by store.
func NewKVPersister(store kvstore.Store) *KVPersister {
	return &KVPersister{store: store}
}

func (p *KVPersister) Load(ctx context.Context) (Session, bool, error) {
	data, ok, err := p.store.Get(ctx, Namespace, SessionKey)
	if err != nil || !ok {
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, false, fmt.Errorf("session: decode persisted session: %w", err)
	}
	return s, true, nil
}

func (p *KVPersister) Save(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode session: %w", err)
	}
	return p.store.Set(ctx, Namespace, SessionKey, data)
}

func (p *KVPersister) Clear(ctx context.Context) error {
	return p.store.Delete(ctx, Namespace, SessionKey)
}
