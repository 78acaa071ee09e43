package youtube

import "sync"

// KeyPool is an ordered set of equivalent API credentials with a monotonic
// cursor. The cursor only ever moves forward; once it passes the last key the
// pool stays exhausted for the life of the process.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

func NewKeyPool(keys []string) *KeyPool {
	kept := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			kept = append(kept, k)
		}
	}
	return &KeyPool{keys: kept}
}

// Current returns the active credential and its index. ok is false once the
// pool is exhausted or was empty to begin with.
func (p *KeyPool) Current() (key string, index int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor >= len(p.keys) {
		return "", p.cursor, false
	}
	return p.keys[p.cursor], p.cursor, true
}

// Advance retires the key at index from. Concurrent callers that observed the
// same quota error pass the same index, so only the first of them actually
// moves the cursor. The return value reports whether any credential remains.
func (p *KeyPool) Advance(from int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cursor == from && p.cursor < len(p.keys) {
		p.cursor++
	}
	return p.cursor < len(p.keys)
}

// Exhausted reports whether no credential remains.
func (p *KeyPool) Exhausted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor >= len(p.keys)
}

// Len returns the total number of configured keys.
func (p *KeyPool) Len() int {
	return len(p.keys)
}
