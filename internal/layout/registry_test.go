package layout

import (
	"testing"

	"github.com/any-hub/any-repo/internal/maven"
)

func replaceRegistry(t *testing.T) func() {
	t.Helper()
	prev := globalRegistry
	globalRegistry = newRegistry()
	return func() { globalRegistry = prev }
}

func noopResolver(string) (maven.Gav, bool) { return maven.Gav{}, false }

func TestRegisterResolveAndList(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Metadata{Key: "beta", Maturity: MaturityBeta, Resolver: noopResolver}); err != nil {
		t.Fatalf("register beta failed: %v", err)
	}
	if err := Register(Metadata{Key: " Gamma ", Maturity: MaturityGA, Resolver: noopResolver}); err != nil {
		t.Fatalf("register gamma failed: %v", err)
	}

	if _, ok := Resolve("beta"); !ok {
		t.Fatalf("expected beta to resolve")
	}
	if _, ok := Resolve("GAMMA"); !ok {
		t.Fatalf("resolve should be case-insensitive")
	}
	if _, ok := Resolve(""); ok {
		t.Fatalf("empty key should not resolve")
	}

	keys := Keys()
	if len(keys) != 2 || keys[0] != "beta" || keys[1] != "gamma" {
		t.Fatalf("unexpected order: %v", keys)
	}
}

func TestRegisterRejectsInvalid(t *testing.T) {
	cleanup := replaceRegistry(t)
	defer cleanup()

	if err := Register(Metadata{Key: "maven2", Resolver: noopResolver}); err != nil {
		t.Fatalf("first registration should succeed: %v", err)
	}
	if err := Register(Metadata{Key: "maven2", Resolver: noopResolver}); err == nil {
		t.Fatalf("duplicate registration should fail")
	}
	if err := Register(Metadata{Key: "bare"}); err == nil {
		t.Fatalf("registration without resolver should fail")
	}
	if err := Register(Metadata{Key: "  ", Resolver: noopResolver}); err == nil {
		t.Fatalf("blank key should fail")
	}
}
