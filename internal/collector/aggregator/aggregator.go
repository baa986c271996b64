package aggregator

import (
	"sync"
	"time"

	"github.com/ALEYI17/kgsltrace/pkg/types"
)

// RequestAggregator counts traced requests and buffer table activity. It
// may be flushed from another goroutine than the one feeding it.
type RequestAggregator struct {
	mu      sync.Mutex
	current Summary
	live    int64
	now     func() time.Time
}

func NewRequestAggregator() *RequestAggregator {
	ra := &RequestAggregator{now: time.Now}
	ra.reset(ra.now())
	return ra
}

func (ra *RequestAggregator) reset(start time.Time) {
	ra.current = Summary{
		WindowStart: start,
		Requests:    make(map[RequestKey]RequestStats),
	}
}

func (ra *RequestAggregator) Update(ev any) {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	switch e := ev.(type) {
	case types.RequestEvent:
		if e.Family == "" {
			ra.current.UnknownRequests++
			return
		}
		key := RequestKey{Family: e.Family, Name: e.Name}
		st := ra.current.Requests[key]
		st.Count++
		if e.Err != nil {
			st.Failed++
		}
		ra.current.Requests[key] = st

	case types.DeviceEvent:
		if e.Bound {
			ra.current.BoundDevices++
		} else {
			ra.current.MissingDevices++
		}

	case types.BufferEvent:
		switch e.Kind {
		case types.BUFFER_TRACKED:
			ra.current.TrackedBuffers++
			ra.current.TrackedBytes += uint64(e.Length)
			ra.live++
		case types.BUFFER_RELEASED:
			ra.current.ReleasedBuffers++
			ra.live--
		case types.BUFFER_PERSISTED:
			ra.current.PersistedBuffers++
		}
	}
}

// Flush returns the counts gathered since the last flush and starts a new
// window. LiveBuffers is carried across windows.
func (ra *RequestAggregator) Flush() Summary {
	ra.mu.Lock()
	defer ra.mu.Unlock()

	now := ra.now()
	s := ra.current
	s.WindowEnd = now
	s.LiveBuffers = ra.live
	ra.reset(now)
	return s
}
