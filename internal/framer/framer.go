// Package framer decides which parts of a Z180 (kgsl-2d) indirect buffer
// are worth dumping.
//
// A 2-D submission starts with the state stream the driver replays on a
// context switch, followed by a call packet whose third word carries, in
// its low 12 bits, the length of the packet that holds the actual drawing
// commands. That length field was found by comparing captured submissions;
// it is not documented and may mis-frame command shapes that were never
// captured. Frames that disagree with the declared buffer size are flagged,
// never corrected.
package framer

import (
	"encoding/binary"
	"errors"
)

const (
	// StateStreamDWords is PACKETSIZE_STATESTREAM: the state packet
	// (319 words) aligned up to 32 bytes.
	StateStreamDWords = 0x140
	// StateDWords is PACKETSIZE_STATE, the unaligned state packet.
	StateDWords = 319

	// The length counts neither the 5-word call packet in front of the
	// command packet nor the two 0x7f000000 words after it.
	HeaderDWords  = 5
	TrailerDWords = 2
	LengthMask    = 0xfff

	// NextBytes is what the driver appends after a 2-D submission to chain
	// back into the ringbuffer.
	NextBytes = 12

	lengthWord = 2
)

const (
	LabelContext = "context"
	LabelCmd     = "cmd"
)

var ErrShortHeader = errors.New("command header extends past the buffer")

// Region is a byte range relative to the start of the buffer.
type Region struct {
	Label  string
	Offset int
	Length int
}

func (r Region) End() int {
	return r.Offset + r.Length
}

type Frame struct {
	Regions []Region
	// Framed is set when the context/cmd split was applied.
	Framed bool
	// InvalidContext marks a 2-D buffer too short to hold the state stream.
	InvalidContext bool
	// CmdDWords is the raw length field, valid when Framed.
	CmdDWords uint32
	// Overrun is set when the cmd region ends past the declared buffer.
	Overrun bool
	// Truncated is set when the buffer ends inside the command header; the
	// cmd region then covers whatever follows the context.
	Truncated bool
}

// CmdLength reads the length field out of a command header.
func CmdLength(header []byte) (uint32, error) {
	if len(header) < (lengthWord+1)*4 {
		return 0, ErrShortHeader
	}
	return binary.LittleEndian.Uint32(header[lengthWord*4:]) & LengthMask, nil
}

// FrameSubmission splits buf, the declared contents of one indirect buffer.
func FrameSubmission(buf []byte, is2D bool) Frame {
	sizeDWords := len(buf) / 4
	if !is2D || sizeDWords <= StateStreamDWords {
		return Frame{
			Regions:        []Region{{Offset: 0, Length: len(buf)}},
			InvalidContext: is2D,
		}
	}

	ctx := Region{Label: LabelContext, Offset: 0, Length: StateStreamDWords * 4}
	f := Frame{Framed: true}

	n, err := CmdLength(buf[ctx.End():])
	if err != nil {
		f.Truncated = true
		f.Regions = []Region{ctx, {Label: LabelCmd, Offset: ctx.End(), Length: len(buf) - ctx.End()}}
		return f
	}

	cmd := Region{
		Label:  LabelCmd,
		Offset: ctx.End(),
		Length: int(n+HeaderDWords+TrailerDWords) * 4,
	}
	f.CmdDWords = n
	f.Overrun = cmd.End() > len(buf)
	f.Regions = []Region{ctx, cmd}
	return f
}

// Trailer locates the chaining words written after a 2-D submission of
// sizeDWords words.
func Trailer(sizeDWords uint32, is2D bool) (Region, bool) {
	if !is2D || sizeDWords <= StateDWords {
		return Region{}, false
	}
	return Region{Label: "next", Offset: int(sizeDWords) * 4, Length: NextBytes}, true
}
