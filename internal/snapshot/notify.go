package snapshot

import (
	"sync"
)

type subCh = chan string // carries new ETags

type notifier struct {
	mu   *sync.Mutex
	subs map[subCh]struct{}
}

func newNotifier() notifier {
	return notifier{mu: &sync.Mutex{}, subs: make(map[subCh]struct{})}
}

// Subscribe registers a listener and returns its channel and an unsubscribe func.
func (n notifier) Subscribe() (subCh, func()) {
	ch := make(subCh, 1)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, ch)
			close(ch)
			n.mu.Unlock()
		})
	}
	return ch, unsub
}

// Subscribers returns the number of registered listeners.
func (n notifier) Subscribers() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// publishUpdate notifies all listeners (non-blocking).
func (n notifier) publishUpdate(etag string) {
	n.mu.Lock()
	for ch := range n.subs {
		select {
		case ch <- etag:
		default: // if client is slow, skip instead of blocking
		}
	}
	n.mu.Unlock()
}
