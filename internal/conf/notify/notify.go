// Package notify provides change notification for committed option
// mutations.
//
// The configuration engine publishes a Change for every value it commits.
// Observers subscribe either globally or for one option-name prefix
// ("network" receives changes to "network-timeout"). Delivery is
// synchronous, on the writer goroutine, after the value has been
// propagated to the shadow store.
package notify

import "sync"

// Source identifies where a committed change came from.
type Source uint8

const (
	// SourceAPI is a direct programmatic set.
	SourceAPI Source = iota

	// SourceCmdline is a set carrying the from-command-line flag.
	SourceCmdline

	// SourceConfigFile is a set carrying the from-config-file flag
	// (includes profile application).
	SourceConfigFile
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceAPI:
		return "api"
	case SourceCmdline:
		return "cmdline"
	case SourceConfigFile:
		return "config-file"
	default:
		return "unknown"
	}
}

// Change describes one committed option mutation.
type Change struct {
	// Name is the full dashed option name.
	Name string

	// Old is the value before the mutation, printed by the option's type.
	Old string

	// New is the committed value, printed by the option's type.
	New string

	// Source identifies the mutation path.
	Source Source
}

// Observer is called for each matching change.
type Observer func(Change)

type subscription struct {
	id     uint64
	prefix string // "" matches everything
	fn     Observer
}

// Notifier fans committed changes out to observers. The zero value is
// usable.
type Notifier struct {
	mu     sync.Mutex
	subs   []subscription
	nextID uint64
}

// New creates a Notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscription identifies an active observer registration.
type Subscription struct {
	n  *Notifier
	id uint64
}

// Cancel removes the observer. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s.n == nil {
		return
	}
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	for i, sub := range s.n.subs {
		if sub.id == s.id {
			s.n.subs = append(s.n.subs[:i], s.n.subs[i+1:]...)
			break
		}
	}
	s.n = nil
}

// Subscribe registers an observer for every change.
func (n *Notifier) Subscribe(fn Observer) *Subscription {
	return n.subscribe("", fn)
}

// SubscribePrefix registers an observer for changes whose option name equals
// the prefix or continues it after a dash. Subscribing to "network" matches
// "network" and "network-timeout" but not "networking".
func (n *Notifier) SubscribePrefix(prefix string, fn Observer) *Subscription {
	return n.subscribe(prefix, fn)
}

func (n *Notifier) subscribe(prefix string, fn Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, prefix: prefix, fn: fn})
	return &Subscription{n: n, id: id}
}

// Publish delivers a change to all matching observers, in subscription
// order. Observers run outside the notifier's lock.
func (n *Notifier) Publish(c Change) {
	n.mu.Lock()
	matched := make([]Observer, 0, len(n.subs))
	for _, sub := range n.subs {
		if matchesPrefix(sub.prefix, c.Name) {
			matched = append(matched, sub.fn)
		}
	}
	n.mu.Unlock()

	for _, fn := range matched {
		fn(c)
	}
}

// matchesPrefix reports whether name is prefix itself or an extension of it
// on a dash boundary.
func matchesPrefix(prefix, name string) bool {
	if prefix == "" || prefix == name {
		return true
	}
	if len(name) <= len(prefix) {
		return false
	}
	return name[:len(prefix)] == prefix && name[len(prefix)] == '-'
}
