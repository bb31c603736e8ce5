package aegis

import "testing"

func TestServiceRegistryGet(t *testing.T) {
	r := NewServiceRegistry(map[string]ServiceEntry{
		"qa": {Key: "qa", Name: "QA Service", URL: "http://qa.local"},
	})

	entry, ok := r.Get("qa")
	if !ok || entry.Name != "QA Service" {
		t.Fatalf("Get(qa) = %+v, %v", entry, ok)
	}

	if _, ok := r.Get("missing"); ok {
		t.Error("expected Get(missing) to report not found")
	}
}

func TestServiceRegistryIsolatedFromSourceMap(t *testing.T) {
	src := map[string]ServiceEntry{"qa": {Key: "qa"}}
	r := NewServiceRegistry(src)
	src["qa"] = ServiceEntry{Key: "qa", Name: "mutated"}

	entry, _ := r.Get("qa")
	if entry.Name == "mutated" {
		t.Error("registry should copy the source map at construction")
	}
}

func TestServiceRegistryKeys(t *testing.T) {
	r := NewServiceRegistry(map[string]ServiceEntry{"a": {}, "b": {}})
	keys := r.Keys()
	if len(keys) != 2 {
		t.Fatalf("Keys() = %v, want 2 entries", keys)
	}
}
