package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/Zeeeepa/scalpel/pkg/parser"
)

func buildFixture(t *testing.T, files map[string]string) *ModuleGraph {
	t.Helper()
	root, paths := writeProject(t, files)
	result, err := NewBuilder().Build(context.Background(), root, paths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return result.Graph
}

func TestLocateFunction(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"svc.py": "def handle(req):\n    pass\n\nclass Service:\n    def handle(self, req):\n        pass\n",
	})
	loc := NewLocator(g)

	ref, sym, err := loc.Locate("svc.py", "handle", LocateOptions{Kind: parser.KindFunction})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if sym.Kind != parser.KindFunction {
		t.Errorf("Kind = %s, want function", sym.Kind)
	}
	if g.Modules[ref.Module].ID != "svc.py" {
		t.Errorf("Module = %s", g.Modules[ref.Module].ID)
	}
}

func TestLocateMethodRequiresClass(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"svc.py": "class Service:\n    def handle(self, req):\n        pass\n\nclass Worker:\n    def handle(self, req):\n        pass\n",
	})
	loc := NewLocator(g)

	_, sym, err := loc.Locate("svc.py", "handle", LocateOptions{Kind: parser.KindMethod, Class: "Worker"})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if sym.Class != "Worker" {
		t.Errorf("Class = %s, want Worker", sym.Class)
	}
}

func TestLocateModuleLevelWinsWithoutDisambiguation(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"svc.py": "class Service:\n    def handle(self, req):\n        pass\n\ndef handle(req):\n    pass\n",
	})
	loc := NewLocator(g)

	_, sym, err := loc.Locate("svc.py", "handle", LocateOptions{})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if sym.Kind != parser.KindFunction {
		t.Errorf("Kind = %s, want module-level function", sym.Kind)
	}
}

func TestLocateFollowsImportChain(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"impl.py": "def compute():\n    pass\n",
		"api.py":  "from impl import compute\n",
	})
	loc := NewLocator(g)

	ref, _, err := loc.Locate("api.py", "compute", LocateOptions{})
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if got := g.Modules[ref.Module].ID; got != "impl.py" {
		t.Errorf("compute located in %s, want impl.py", got)
	}
}

func TestLocateTargetNotFound(t *testing.T) {
	g := buildFixture(t, map[string]string{"a.py": "x = 1\n"})
	loc := NewLocator(g)

	_, _, err := loc.Locate("missing.py", "x", LocateOptions{})
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("Expected ErrTargetNotFound, got %v", err)
	}
}

func TestLocateSymbolNotFound(t *testing.T) {
	g := buildFixture(t, map[string]string{"a.py": "x = 1\n"})
	loc := NewLocator(g)

	_, _, err := loc.Locate("a.py", "nope", LocateOptions{})
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("Expected ErrSymbolNotFound, got %v", err)
	}
}

func TestMethods(t *testing.T) {
	g := buildFixture(t, map[string]string{
		"svc.py": "class Service:\n    def start(self):\n        pass\n\n    def stop(self):\n        pass\n",
	})
	loc := NewLocator(g)

	methods, err := loc.Methods("svc.py", "Service")
	if err != nil {
		t.Fatalf("Methods: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("Expected 2 methods, got %d", len(methods))
	}

	if _, err := loc.Methods("svc.py", "Missing"); !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("Expected ErrSymbolNotFound for missing class, got %v", err)
	}
}
