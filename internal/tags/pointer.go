package tags

import "sync"

// PointerEvent is a pointer interaction in page coordinates.
type PointerEvent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is the bounding region a component occupies.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether ev falls inside r. A zero Rect contains nothing.
func (r Rect) Contains(ev PointerEvent) bool {
	return ev.X >= r.X && ev.X < r.X+r.W && ev.Y >= r.Y && ev.Y < r.Y+r.H
}

// PointerSource delivers pointer events to subscribers. The returned function
// cancels the subscription and is safe to call more than once.
type PointerSource interface {
	Subscribe(fn func(PointerEvent)) (unsubscribe func())
}

// Bus is a synchronous PointerSource. Publish calls every subscriber on the
// publishing goroutine.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]func(PointerEvent)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(PointerEvent))}
}

func (b *Bus) Subscribe(fn func(PointerEvent)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to the current subscribers.
func (b *Bus) Publish(ev PointerEvent) {
	b.mu.Lock()
	fns := make([]func(PointerEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
