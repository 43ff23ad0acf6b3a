package history

import "time"

// Event is one recorded fact about a build, in append order.
type Event struct {
	Seq        int64
	BuildID    string
	Kind       string
	RecordedAt time.Time
	Payload    []byte
}
