package pipeline

import "testing"

func TestRouterRoutesByName(t *testing.T) {
	r := NewRouter(map[string]string{"a": "backend-a", "b": "backend-b"}, "a")
	got, err := r.Route("b")
	if err != nil || got != "backend-b" {
		t.Fatalf("Route(b) = (%q, %v), want (%q, nil)", got, err, "backend-b")
	}
}

func TestRouterFallsBackOnUnknownEngine(t *testing.T) {
	r := NewRouter(map[string]string{"a": "backend-a"}, "a")
	got, err := r.Route("missing")
	if err != nil || got != "backend-a" {
		t.Fatalf("Route(missing) = (%q, %v), want fallback (%q, nil)", got, err, "backend-a")
	}
}

func TestRouterErrorsWhenFallbackAlsoMissing(t *testing.T) {
	r := NewRouter(map[string]string{"a": "backend-a"}, "nonexistent")
	_, err := r.Route("missing")
	if err == nil {
		t.Fatal("Route(missing) error = nil, want error when fallback is also absent")
	}
}

func TestRouterHas(t *testing.T) {
	r := NewRouter(map[string]string{"a": "backend-a"}, "a")
	if !r.Has("a") {
		t.Error("Has(a) = false, want true")
	}
	if r.Has("b") {
		t.Error("Has(b) = true, want false")
	}
}

func TestRouterEngines(t *testing.T) {
	r := NewRouter(map[string]string{"a": "backend-a", "b": "backend-b"}, "a")
	names := r.Engines()
	if len(names) != 2 {
		t.Fatalf("Engines() = %v, want 2 entries", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("Engines() = %v, want both a and b", names)
	}
}
