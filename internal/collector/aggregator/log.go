package aggregator

import (
	"sort"

	"go.uber.org/zap"
)

// LogSummary writes one entry per request kind followed by the totals.
func LogSummary(logger *zap.Logger, s Summary) {
	keys := make([]RequestKey, 0, len(s.Requests))
	for k := range s.Requests {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Family != keys[j].Family {
			return keys[i].Family < keys[j].Family
		}
		return keys[i].Name < keys[j].Name
	})

	for _, k := range keys {
		st := s.Requests[k]
		logger.Info("Request summary",
			zap.String("family", k.Family),
			zap.String("request", k.Name),
			zap.Uint64("count", st.Count),
			zap.Uint64("failed", st.Failed))
	}

	logger.Info("Trace summary",
		zap.Duration("window", s.WindowEnd.Sub(s.WindowStart)),
		zap.Uint64("requests", s.TotalRequests()),
		zap.Uint64("unknown_requests", s.UnknownRequests),
		zap.Uint64("bound_devices", s.BoundDevices),
		zap.Uint64("missing_devices", s.MissingDevices),
		zap.Uint64("tracked_buffers", s.TrackedBuffers),
		zap.Uint64("tracked_bytes", s.TrackedBytes),
		zap.Uint64("released_buffers", s.ReleasedBuffers),
		zap.Uint64("persisted_buffers", s.PersistedBuffers),
		zap.Int64("live_buffers", s.LiveBuffers))
}
