package store

import "sync"

// Feed fans out store changes to subscribers. Each subscriber channel holds
// at most one pending change: when a subscriber lags, the pending change is
// replaced by the newer one. Subscribers that recompute from the full store
// on every change lose nothing, since the newest change carries the highest Seq.
type Feed struct {
	mu     sync.Mutex
	seq    int64
	nextID int
	subs   map[int]chan Change
	closed bool
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan Change)}
}

// Publish assigns the next sequence number and notifies all subscribers.
// Stores call it only after the mutation has been committed.
func (f *Feed) Publish(op Op, id int64) Change {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	c := Change{Seq: f.seq, Op: op, ID: id}
	if f.closed {
		return c
	}
	for _, ch := range f.subs {
		select {
		case ch <- c:
		default:
			// Replace the stale pending change.
			select {
			case <-ch:
			default:
			}
			ch <- c
		}
	}
	return c
}

func (f *Feed) Subscribe() (<-chan Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Change, 1)
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if _, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(ch)
			}
		})
	}
}

func (f *Feed) Seq() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seq
}

// Close closes every subscriber channel. Later publishes only advance Seq.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
