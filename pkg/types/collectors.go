package types

// Collectors observe every traced request.
type Collectors interface {
	Update(ev any)
}

// RequestEvent is emitted once per forwarded control request.
type RequestEvent struct {
	Fd      int
	Family  string
	Name    string
	Request uint
	Ret     int
	Err     error
}

// DeviceEvent is emitted for every successful open of a device path.
type DeviceEvent struct {
	Path  string
	Fd    int
	Name  string
	Bound bool
}

// BufferEvent is emitted when the buffer table or the artifact writer
// changes state.
type BufferEvent struct {
	Kind       int
	HostAddr   uint64
	DeviceAddr uint32
	Length     uint32
}

const (
	BUFFER_TRACKED   = 1
	BUFFER_RELEASED  = 2
	BUFFER_PERSISTED = 3
)
