package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flowtools-go/flowtools/flow"
)

func echoTemplate(id string, cfg Config) (flow.Node, error) {
	return flow.NewBaseNode(id, flow.KindCustom, func(_ context.Context, input flow.Data) (flow.Data, error) {
		return flow.Data{"echo": input}, nil
	}), nil
}

// TestRegisterAndBuild verifies the basic register/build round trip.
func TestRegisterAndBuild(t *testing.T) {
	r := New()
	if err := r.Register("echo", echoTemplate); err != nil {
		t.Fatalf("Register: %v", err)
	}

	n, err := r.Build("echo", Config{"id": "e1"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n.ID() != "e1" {
		t.Errorf("ID = %q, want %q", n.ID(), "e1")
	}
	if n.Kind() != flow.KindCustom {
		t.Errorf("Kind = %q", n.Kind())
	}
}

// TestBuildUnknownKind verifies an unregistered kind is a misuse error.
func TestBuildUnknownKind(t *testing.T) {
	r := New()
	if _, err := r.Build("nope", nil); !errors.Is(err, flow.ErrMisuse) {
		t.Fatalf("got %v, want ErrMisuse", err)
	}
}

// TestBuildGeneratesID verifies a missing id is filled in with a
// kind-prefixed unique one.
func TestBuildGeneratesID(t *testing.T) {
	r := New()
	r.Register("echo", echoTemplate)

	a, err := r.Build("echo", Config{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	b, err := r.Build("echo", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !strings.HasPrefix(a.ID(), "echo_") {
		t.Errorf("generated id %q lacks kind prefix", a.ID())
	}
	if a.ID() == b.ID() {
		t.Errorf("generated ids collide: %q", a.ID())
	}
}

// TestRegisterRejectsBadInput verifies empty kinds and nil templates
// are misuse errors.
func TestRegisterRejectsBadInput(t *testing.T) {
	r := New()
	if err := r.Register("", echoTemplate); !errors.Is(err, flow.ErrMisuse) {
		t.Errorf("empty kind: got %v, want ErrMisuse", err)
	}
	if err := r.Register("x", nil); !errors.Is(err, flow.ErrMisuse) {
		t.Errorf("nil template: got %v, want ErrMisuse", err)
	}
}

// TestRegisterReplaces verifies a later registration wins.
func TestRegisterReplaces(t *testing.T) {
	r := New()
	r.Register("k", echoTemplate)
	r.Register("k", func(id string, cfg Config) (flow.Node, error) {
		return flow.NewBaseNode(id, flow.KindTool, func(_ context.Context, _ flow.Data) (flow.Data, error) {
			return flow.Data{}, nil
		}), nil
	})

	n, err := r.Build("k", Config{"id": "n"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n.Kind() != flow.KindTool {
		t.Errorf("Kind = %q, want replacement template's kind", n.Kind())
	}
}

// TestKinds verifies the sorted kind listing.
func TestKinds(t *testing.T) {
	r := New()
	r.Register("zeta", echoTemplate)
	r.Register("alpha", echoTemplate)

	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != "alpha" || kinds[1] != "zeta" {
		t.Errorf("Kinds = %v", kinds)
	}
}

// TestTemplateErrorPropagates verifies a failing template's error
// reaches the Build caller.
func TestTemplateErrorPropagates(t *testing.T) {
	wantErr := errors.New("missing required config")
	r := New()
	r.Register("strict", func(id string, cfg Config) (flow.Node, error) {
		return nil, wantErr
	})

	if _, err := r.Build("strict", nil); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
