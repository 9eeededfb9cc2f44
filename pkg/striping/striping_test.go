package striping

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := rand.New(rand.NewSource(1))
	original := make([]byte, ChunkThreshold+1024)
	src.Read(original)

	frames, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(frames) == 0 {
		t.Fatal("Encode produced no frames")
	}

	reas := NewReassembler(uint64(len(original)))
	var out []byte
	for _, raw := range frames {
		f, err := UnmarshalFrame(raw)
		if err != nil {
			t.Fatalf("UnmarshalFrame: %v", err)
		}
		decoded, ok, err := reas.Add(f)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if ok {
			out = decoded
			break
		}
	}

	if out == nil {
		t.Fatal("reassembler never completed with all frames supplied")
	}
	if !bytes.Equal(out, original) {
		t.Fatal("decoded payload does not match original")
	}
}

func TestUnmarshalFrame_TooShort(t *testing.T) {
	if _, err := UnmarshalFrame([]byte{1, 2, 3}); err != ErrFrameTooShort {
		t.Fatalf("UnmarshalFrame(short) = %v, want ErrFrameTooShort", err)
	}
}

func TestUnmarshalFrame_RawPayloadAtOrAboveHeaderLenIsNotAFrame(t *testing.T) {
	// A raw, unchunked segment payload that happens to be at least
	// frameHeaderLen bytes long must never be mistaken for a striping
	// frame just because of its length.
	raw := bytes.Repeat([]byte("x"), frameHeaderLen+50)
	if _, err := UnmarshalFrame(raw); err != ErrNotAFrame {
		t.Fatalf("UnmarshalFrame(raw, long) = %v, want ErrNotAFrame", err)
	}
}

func TestMarshalUnmarshalFrame(t *testing.T) {
	f := Frame{ObjectSize: 12345, SymbolID: 7, TotalSymbols: 99, Data: []byte("hello")}
	raw := marshalFrame(f)
	got, err := UnmarshalFrame(raw)
	if err != nil {
		t.Fatalf("UnmarshalFrame: %v", err)
	}
	if got.ObjectSize != f.ObjectSize || got.SymbolID != f.SymbolID || got.TotalSymbols != f.TotalSymbols {
		t.Fatalf("got %+v, want %+v", got, f)
	}
	if string(got.Data) != string(f.Data) {
		t.Fatalf("Data = %q, want %q", got.Data, f.Data)
	}
}
