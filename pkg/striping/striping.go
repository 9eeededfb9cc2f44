// Package striping supplements the wire layer for segments too large for a
// single pub/sub message. Gossipsub enforces a default message-size
// ceiling far below the spec's 500 MiB segment maximum; original_source's
// rust client never addresses this (its gossipsub config is left at
// gossipsub::Config::default() with a "// TODO: FINISH CONFIG" next to
// it). Segments above ChunkThreshold are RaptorQ fountain-coded into
// symbols, each carried as one pub/sub message; segments at or below the
// threshold are published as a single raw message exactly as the wire
// layer otherwise specifies, with no framing at all.
package striping

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/xssnick/raptorq"
)

// ChunkThreshold is the payload size above which a segment is striped
// across multiple symbols instead of published whole.
const ChunkThreshold = 768 * 1024 // 768 KiB

// symbolSize is the RaptorQ sub-symbol size used for encode/decode.
const symbolSize = 4096

// overheadFactor inflates the symbol count requested from the encoder
// beyond the minimum needed to decode, covering messages dropped by
// uninterested or slow subscribers.
const overheadFactor = 1.3

var (
	// ErrFrameTooShort is returned when a received message is shorter
	// than the fixed framing header.
	ErrFrameTooShort = errors.New("striping: frame shorter than header")

	// ErrNotAFrame is returned when a received message is long enough to
	// hold a header but does not start with frameMagic: a raw,
	// unchunked segment payload, not a striping frame.
	ErrNotAFrame = errors.New("striping: not a striping frame")
)

// frameMagic prefixes every striping frame so a raw, unchunked segment
// payload (the common case, published with no framing at all per the
// wire layer) can never be mistaken for a frame just because it happens
// to be at least frameHeaderLen bytes long.
var frameMagic = [4]byte{'M', 'R', 'Q', 'F'}

// frameHeaderLen is magic(4) + objectSize(8) + symbolID(4) + totalSymbols(4).
const frameHeaderLen = 20

// Frame is one RaptorQ symbol plus the framing header needed to
// reassemble it without an out-of-band announcement.
type Frame struct {
	ObjectSize   uint64
	SymbolID     uint32
	TotalSymbols uint32
	Data         []byte
}

// Encode returns the Marshal'd frames required to decode data with high
// probability, each ready to publish as one pub/sub message.
func Encode(data []byte) ([][]byte, error) {
	rq := raptorq.NewRaptorQ(symbolSize)
	enc, err := rq.CreateEncoder(data)
	if err != nil {
		return nil, fmt.Errorf("striping: create encoder: %w", err)
	}

	minSymbols := (len(data) + symbolSize - 1) / symbolSize
	total := uint32(float64(minSymbols) * overheadFactor)
	if total < uint32(minSymbols) {
		total = uint32(minSymbols)
	}

	symbols := enc.GenSymbols(0, total)
	frames := make([][]byte, 0, len(symbols))
	for _, sym := range symbols {
		frames = append(frames, marshalFrame(Frame{
			ObjectSize:   uint64(len(data)),
			SymbolID:     sym.ID,
			TotalSymbols: total,
			Data:         sym.Data,
		}))
	}
	return frames, nil
}

func marshalFrame(f Frame) []byte {
	buf := make([]byte, frameHeaderLen+len(f.Data))
	copy(buf[0:4], frameMagic[:])
	binary.BigEndian.PutUint64(buf[4:12], f.ObjectSize)
	binary.BigEndian.PutUint32(buf[12:16], f.SymbolID)
	binary.BigEndian.PutUint32(buf[16:20], f.TotalSymbols)
	copy(buf[frameHeaderLen:], f.Data)
	return buf
}

// UnmarshalFrame parses a wire message back into a Frame. It returns
// ErrNotAFrame for any message that does not start with frameMagic,
// which callers use to tell a striping frame apart from a raw,
// unchunked segment payload of the same or greater length.
func UnmarshalFrame(b []byte) (Frame, error) {
	if len(b) < frameHeaderLen {
		return Frame{}, ErrFrameTooShort
	}
	if !bytes.Equal(b[0:4], frameMagic[:]) {
		return Frame{}, ErrNotAFrame
	}
	return Frame{
		ObjectSize:   binary.BigEndian.Uint64(b[4:12]),
		SymbolID:     binary.BigEndian.Uint32(b[12:16]),
		TotalSymbols: binary.BigEndian.Uint32(b[16:20]),
		Data:         b[frameHeaderLen:],
	}, nil
}

// Reassembler accumulates Frames for one segment id until enough symbols
// have arrived to decode the original payload.
type Reassembler struct {
	mu      sync.Mutex
	decoder raptorq.Decoder
	size    uint64
	done    bool
}

// NewReassembler constructs a Reassembler for a segment of the given size.
func NewReassembler(objectSize uint64) *Reassembler {
	rq := raptorq.NewRaptorQ(symbolSize)
	return &Reassembler{
		decoder: rq.CreateDecoder(objectSize, nil),
		size:    objectSize,
	}
}

// Add feeds one Frame into the reassembler. It returns the decoded payload
// and true once enough symbols have arrived; otherwise it returns
// (nil, false, nil) and the caller should keep collecting frames.
func (r *Reassembler) Add(f Frame) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return nil, false, nil
	}

	if err := r.decoder.AddSymbol(raptorq.Symbol{ID: f.SymbolID, Data: f.Data}); err != nil {
		return nil, false, fmt.Errorf("striping: add symbol: %w", err)
	}

	data, err := r.decoder.Decode()
	if err != nil {
		// Not enough symbols yet; this is the expected steady state
		// until enough frames have arrived.
		return nil, false, nil
	}

	r.done = true
	return data, true, nil
}
