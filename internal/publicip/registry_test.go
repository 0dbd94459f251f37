package publicip

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"testing"

	"github.com/go-logr/logr"
)

type fixedResolver netip.Addr

func (f fixedResolver) Resolve(context.Context) (netip.Addr, error) {
	return netip.Addr(f), nil
}

func TestRegisterAndNewResolver(t *testing.T) {
	var gotSettings map[string]string
	Register("test-fixed", func(_ logr.Logger, settings map[string]string) (Resolver, error) {
		gotSettings = settings
		return fixedResolver(netip.MustParseAddr("192.0.2.1")), nil
	})

	r, err := NewResolver("test-fixed", logr.Discard(), nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if gotSettings == nil {
		t.Error("expected nil settings to be replaced with an empty map")
	}
	addr, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr.String() != "192.0.2.1" {
		t.Errorf("expected 192.0.2.1, got %s", addr)
	}

	found := false
	for _, n := range Names() {
		if n == "test-fixed" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected test-fixed in %v", Names())
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	f := func(logr.Logger, map[string]string) (Resolver, error) { return nil, nil }
	Register("test-duplicate", f)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("test-duplicate", f)
}

func TestNewResolver_Unknown(t *testing.T) {
	_, err := NewResolver("does-not-exist", logr.Discard(), nil)
	if err == nil {
		t.Fatal("expected error for unknown resolver, got nil")
	}
	if !strings.Contains(err.Error(), "does-not-exist") {
		t.Errorf("expected error to name the resolver, got %q", err)
	}
}

func TestParseIPv4(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{"203.0.113.5", "203.0.113.5", nil},
		{"2001:db8::1", "", ErrNotIPv4},
		{"::ffff:203.0.113.5", "", ErrNotIPv4},
		{"", "", nil},
		{"nope", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, err := ParseIPv4(tt.in)
			if tt.want != "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if addr.String() != tt.want {
					t.Errorf("expected %s, got %s", tt.want, addr)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveError(t *testing.T) {
	err := &ResolveError{Server: "1.1.1.1:53", Err: ErrNoAnswer}
	if !errors.Is(err, ErrNoAnswer) {
		t.Error("expected ResolveError to unwrap to ErrNoAnswer")
	}
	if !strings.Contains(err.Error(), "1.1.1.1:53") {
		t.Errorf("expected server in message, got %q", err)
	}
	if strings.Contains((&ResolveError{Err: ErrNoAnswer}).Error(), "via") {
		t.Error("expected no server in message when unset")
	}
}
