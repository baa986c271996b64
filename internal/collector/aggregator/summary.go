package aggregator

import "time"

// RequestKey identifies one decoded request kind.
type RequestKey struct {
	Family string
	Name   string
}

type RequestStats struct {
	Count  uint64
	Failed uint64
}

// Summary is a snapshot of everything seen since the previous flush.
type Summary struct {
	WindowStart time.Time
	WindowEnd   time.Time

	Requests        map[RequestKey]RequestStats
	UnknownRequests uint64

	BoundDevices   uint64
	MissingDevices uint64

	// Buffer table activity
	TrackedBuffers   uint64
	ReleasedBuffers  uint64
	PersistedBuffers uint64
	TrackedBytes     uint64
	LiveBuffers      int64
}

// TotalRequests counts every forwarded request, decoded or not.
func (s Summary) TotalRequests() uint64 {
	total := s.UnknownRequests
	for _, st := range s.Requests {
		total += st.Count
	}
	return total
}
