package protocol

import (
	"fmt"
	"sort"
	"sync"
)

// Peers is the live-peer registry owned by one handler instance. H is the
// handle the handler uses to reach a peer, typically its outbound queue.
//
// All access goes through one RWMutex. Methods copy out what callers need
// and release the lock before returning, so no caller can hold the lock
// across network I/O.
//
// Example:
//
//	peers := protocol.NewPeers[chan []byte]()
//	_ = peers.Add(info, make(chan []byte, 100))
//	if q, ok := peers.Lookup(id); ok {
//	    q <- data
//	}
type Peers[H any] struct {
	mu      sync.RWMutex
	entries map[string]peerEntry[H]
}

type peerEntry[H any] struct {
	info   ConnectionInfo
	handle H
}

// NewPeers creates an empty registry.
func NewPeers[H any]() *Peers[H] {
	return &Peers[H]{entries: make(map[string]peerEntry[H])}
}

// Add registers a peer. Returns ErrConnectionExists if the ID is live.
func (p *Peers[H]) Add(info ConnectionInfo, handle H) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[info.ID]; exists {
		return fmt.Errorf("%w: %s", ErrConnectionExists, info.ID)
	}
	p.entries[info.ID] = peerEntry[H]{info: info, handle: handle}
	return nil
}

// Remove unregisters a peer and returns its info. The second result is
// false if the peer was not registered.
func (p *Peers[H]) Remove(id string) (ConnectionInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[id]
	if !ok {
		return ConnectionInfo{}, false
	}
	delete(p.entries, id)
	return e.info, true
}

// Lookup returns the handle for a peer.
func (p *Peers[H]) Lookup(id string) (H, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[id]
	return e.handle, ok
}

// Get returns the info for a peer.
func (p *Peers[H]) Get(id string) (ConnectionInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[id]
	return e.info, ok
}

// Len returns the number of live peers.
func (p *Peers[H]) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Snapshot returns the info of every live peer ordered by connect time.
func (p *Peers[H]) Snapshot() []ConnectionInfo {
	p.mu.RLock()
	infos := make([]ConnectionInfo, 0, len(p.entries))
	for _, e := range p.entries {
		infos = append(infos, e.info)
	}
	p.mu.RUnlock()

	sortInfos(infos)
	return infos
}

// Handles returns every live handle keyed by peer ID.
func (p *Peers[H]) Handles() map[string]H {
	p.mu.RLock()
	defer p.mu.RUnlock()

	handles := make(map[string]H, len(p.entries))
	for id, e := range p.entries {
		handles[id] = e.handle
	}
	return handles
}

// Range calls fn for each peer on a snapshot taken under the lock.
// Return false from fn to stop iteration.
func (p *Peers[H]) Range(fn func(info ConnectionInfo, handle H) bool) {
	p.mu.RLock()
	entries := make([]peerEntry[H], 0, len(p.entries))
	for _, e := range p.entries {
		entries = append(entries, e)
	}
	p.mu.RUnlock()

	for _, e := range entries {
		if !fn(e.info, e.handle) {
			return
		}
	}
}

func sortInfos(infos []ConnectionInfo) {
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].ConnectedAt.Equal(infos[j].ConnectedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})
}
