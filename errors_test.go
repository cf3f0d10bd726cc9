package discover

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrTerminated", ErrTerminated, "watch stream terminated"},
		{"ErrClosed", ErrClosed, "registry closed"},
		{"ErrLeafExists", ErrLeafExists, "leaf node already exists"},
		{"ErrNotRegistered", ErrNotRegistered, "instance not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatalf("sentinel error %s is nil", tt.name)
			}
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("error message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegErrorFormatting(t *testing.T) {
	base := errors.New("boom")

	withoutPath := &RegError{Op: "Registry.Register", Kind: KindCreatePath, Err: base}
	if got, want := withoutPath.Error(), fmt.Sprintf("discover: Registry.Register (create_path): %v", base); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withPath := &RegError{Op: "Registry.Register", Kind: KindCreatePath, Err: base, Path: "/app/leaf"}
	if got, want := withPath.Error(), fmt.Sprintf("discover: Registry.Register (create_path): %v [path=/app/leaf]", base); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if !errors.Is(withPath, base) {
		t.Errorf("expected errors.Is to unwrap to base error")
	}
}

func TestRegErrorIsMatchesByKind(t *testing.T) {
	err := &RegError{Op: "Registry.Register", Kind: KindCreatePath, Err: errors.New("exists")}

	if !errors.Is(err, &RegError{Kind: KindCreatePath}) {
		t.Errorf("expected Is to match on Kind alone")
	}
	if errors.Is(err, &RegError{Kind: KindDeletePath}) {
		t.Errorf("expected Is to not match a different Kind")
	}
	if !errors.Is(err, &RegError{Kind: KindCreatePath, Op: "Registry.Register"}) {
		t.Errorf("expected Is to match when Op also matches")
	}
	if errors.Is(err, &RegError{Kind: KindCreatePath, Op: "Registry.Deregister"}) {
		t.Errorf("expected Is to not match a different Op")
	}
}
