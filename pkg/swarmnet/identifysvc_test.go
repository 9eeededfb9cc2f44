package swarmnet

import (
	"reflect"
	"testing"

	"github.com/libp2p/go-libp2p/core/protocol"
)

func TestProtocolStrings(t *testing.T) {
	in := []protocol.ID{"/ipfs/id/1.0.0", IdentifyProtocolID}
	got := protocolStrings(in)
	want := []string{"/ipfs/id/1.0.0", string(IdentifyProtocolID)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("protocolStrings = %v, want %v", got, want)
	}
}

func TestProtocolStrings_Empty(t *testing.T) {
	got := protocolStrings(nil)
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %v", got)
	}
}
