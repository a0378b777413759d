package subscription

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/chat"
)

// Registry concurrent many-to-many mapping between keys and rooms.
// A key never maps to an empty set and a room appears at most once per key.
type Registry[K Key] struct {
	kind   string
	domain string

	mu       sync.Mutex
	poisoned bool
	subs     map[K]map[chat.RoomID]struct{}
}

// NewRegistry for entities of kind (e.g. "package") on backend domain
func NewRegistry[K Key](kind, domain string) *Registry[K] {
	return &Registry[K]{
		kind:   kind,
		domain: domain,
		subs:   make(map[K]map[chat.RoomID]struct{}),
	}
}

// withLock run fn holding the lock. A panic inside fn poisons the registry.
func (r *Registry[K]) withLock(fn func()) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned {
		return ErrRegistryUnavailable
	}

	candihelper.TryCatch{
		Try: fn,
		Catch: func(e error) {
			r.poisoned = true
			err = fmt.Errorf("%w: %v", ErrRegistryUnavailable, e)
		},
	}.Do()
	return err
}

// Subscribe room to key, idempotent
func (r *Registry[K]) Subscribe(key K, room chat.RoomID) (reply string, added bool, err error) {
	err = r.withLock(func() {
		rooms, ok := r.subs[key]
		if !ok {
			rooms = make(map[chat.RoomID]struct{})
			r.subs[key] = rooms
		}
		if _, ok := rooms[room]; !ok {
			rooms[room] = struct{}{}
			added = true
		}
	})
	if err != nil {
		return "", false, err
	}
	return fmt.Sprintf("Subscribed to %s %s on %s", r.kind, key, r.domain), added, nil
}

// Unsubscribe room from key, the key is dropped with its last room
func (r *Registry[K]) Unsubscribe(key K, room chat.RoomID) (string, error) {
	var found bool
	err := r.withLock(func() {
		rooms, ok := r.subs[key]
		if !ok {
			return
		}
		if _, found = rooms[room]; !found {
			return
		}
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(r.subs, key)
		}
	})
	if err != nil {
		return "", err
	}

	if !found {
		return fmt.Sprintf("This room was not subscribed to %s %s on %s", r.kind, key, r.domain), nil
	}
	return fmt.Sprintf("Unsubscribed from %s %s on %s", r.kind, key, r.domain), nil
}

// List keys room is subscribed to, sorted by encoding
func (r *Registry[K]) List(room chat.RoomID) ([]K, error) {
	var keys []K
	err := r.withLock(func() {
		for key, rooms := range r.subs {
			if _, ok := rooms[room]; ok {
				keys = append(keys, key)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys, nil
}

// Lookup copy of the rooms subscribed to key, sorted
func (r *Registry[K]) Lookup(key K) ([]chat.RoomID, error) {
	var rooms []chat.RoomID
	err := r.withLock(func() {
		for room := range r.subs[key] {
			rooms = append(rooms, room)
		}
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms, nil
}

// Stats number of keys and of (key, room) memberships
func (r *Registry[K]) Stats() (keys, memberships int, err error) {
	err = r.withLock(func() {
		keys = len(r.subs)
		for _, rooms := range r.subs {
			memberships += len(rooms)
		}
	})
	return keys, memberships, err
}
