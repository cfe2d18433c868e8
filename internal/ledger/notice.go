package ledger

import "sync"

type NoticeKind string

const NoticeOverLimit NoticeKind = "over_limit"

// Notice is a non-blocking message for the shopper.
type Notice struct {
	Kind      NoticeKind
	Key       Key
	Requested int
	Accepted  int
	Message   string
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}

// Recorder keeps every notice; useful for tests and for UIs that drain
// notices on their own schedule.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Drain returns and forgets the recorded notices.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}
