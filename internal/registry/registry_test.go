package registry

import (
	"context"
	"testing"
)

func noop(context.Context, map[string]any) (any, error) { return nil, nil }

func TestRegistryDuality(t *testing.T) {
	r := New()
	view := r.Provider("google_chat")
	view.Register("send_message", "posts a message", nil, noop)

	// Bare name on the provider surface.
	if _, ok := view.Lookup("send_message"); !ok {
		t.Error("tool not findable by bare name on its provider view")
	}
	// Composite key on the central registry.
	if _, ok := r.Lookup("google_chat.send_message"); !ok {
		t.Error("tool not findable by composite key in the central registry")
	}
	// Registration through the central registry is visible on the view.
	r.Register(&Descriptor{Name: "list_spaces", Provider: "google_chat", Handler: noop})
	if _, ok := view.Lookup("list_spaces"); !ok {
		t.Error("central registration not visible through the provider view")
	}
}

func TestDuplicateRegistrationOverwrites(t *testing.T) {
	r := New()
	r.Register(&Descriptor{Name: "t", Provider: "p", Description: "first", Handler: noop})
	r.Register(&Descriptor{Name: "t", Provider: "p", Description: "second", Handler: noop})

	if r.Len() != 1 {
		t.Fatalf("registry holds %d entries, want exactly 1", r.Len())
	}
	d, _ := r.Lookup("p.t")
	if d.Description != "second" {
		t.Errorf("description = %q, want the later registration to win", d.Description)
	}
}

func TestProviderViewIsolation(t *testing.T) {
	r := New()
	r.Provider("alpha").Register("tool", "", nil, noop)
	r.Provider("beta").Register("tool", "", nil, noop)

	if r.Len() != 2 {
		t.Fatalf("registry holds %d entries, want 2 (distinct providers)", r.Len())
	}
	if got := len(r.Provider("alpha").Tools()); got != 1 {
		t.Errorf("alpha view shows %d tools, want 1", got)
	}
	if _, ok := r.Provider("alpha").Lookup("tool"); !ok {
		t.Error("alpha's tool missing from its own view")
	}
}

func TestUnregisterAndClear(t *testing.T) {
	r := New()
	r.Provider("p").Register("a", "", nil, noop)
	r.Provider("p").Register("b", "", nil, noop)

	if !r.Unregister("p.a") {
		t.Error("Unregister(p.a) = false, want true")
	}
	if r.Unregister("p.a") {
		t.Error("second Unregister(p.a) = true, want false")
	}
	if r.Len() != 1 {
		t.Errorf("registry holds %d entries after unregister, want 1", r.Len())
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("registry holds %d entries after Clear, want 0", r.Len())
	}
}

func TestAllSorted(t *testing.T) {
	r := New()
	r.Provider("b").Register("z", "", nil, noop)
	r.Provider("a").Register("y", "", nil, noop)
	r.Provider("a").Register("x", "", nil, noop)

	all := r.All()
	want := []string{"a.x", "a.y", "b.z"}
	for i, d := range all {
		if d.CompositeKey() != want[i] {
			t.Errorf("All()[%d] = %s, want %s", i, d.CompositeKey(), want[i])
		}
	}
}

func TestSplit(t *testing.T) {
	cases := []struct {
		in       string
		provider string
		name     string
	}{
		{"google_chat.send_message", "google_chat", "send_message"},
		{"send_message", "", "send_message"},
		{"a.b.c", "a", "b.c"},
	}
	for _, tc := range cases {
		p, n := Split(tc.in)
		if p != tc.provider || n != tc.name {
			t.Errorf("Split(%q) = (%q, %q), want (%q, %q)", tc.in, p, n, tc.provider, tc.name)
		}
	}
}
