package logging

import "testing"

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode, "warn")
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.With("owner", "ana").Info("dropped below level")
	}
	if _, err := New("dev", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	l := OrNop(nil)
	if l == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
	l.Error("discarded", "k", 1)
}
