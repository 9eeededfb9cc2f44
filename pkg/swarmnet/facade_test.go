package swarmnet

import (
	"context"
	"errors"
	"testing"

	"github.com/marecchia-io/node/internal/config"
)

func TestConstruct_BadNamespaceRejectsBeforeBuildingHost(t *testing.T) {
	cfg := &config.Config{Namespace: ""}
	_, err := Construct(context.Background(), cfg)
	if !errors.Is(err, ErrBadNamespace) {
		t.Fatalf("err = %v, want ErrBadNamespace", err)
	}
}
