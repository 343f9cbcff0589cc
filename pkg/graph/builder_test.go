package graph

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// writeProject lays out files under a temp root and returns the root plus
// the absolute paths in map iteration-independent sorted form.
func writeProject(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
		paths = append(paths, abs)
	}
	return root, paths
}

func TestBuildResolvesPythonImports(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"pkg/__init__.py": "from .core import run\n",
		"pkg/core.py":     "def run():\n    pass\n",
		"main.py":         "from pkg import run\n\nrun()\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	if g.Len() != 3 {
		t.Fatalf("Expected 3 modules, got %d", g.Len())
	}
	if result.Truncated {
		t.Errorf("Unexpected truncation: %s", result.TruncationReason)
	}
	if len(result.Unresolved) != 0 {
		t.Errorf("Unexpected unresolved imports: %+v", result.Unresolved)
	}

	mainIdx, ok := g.IndexOf("main.py")
	if !ok {
		t.Fatal("main.py missing from graph")
	}

	// "run" in main.py reaches through pkg/__init__.py to its definition.
	ref, ok := g.ResolveSymbol(mainIdx, "run")
	if !ok {
		t.Fatal("ResolveSymbol(run) failed")
	}
	if got := g.Modules[ref.Module].ID; got != "pkg/core.py" {
		t.Errorf("run resolved to %s, want pkg/core.py", got)
	}
	if name := g.Modules[ref.Module].Symbols[ref.Index].Name; name != "run" {
		t.Errorf("resolved symbol name = %s", name)
	}
}

func TestBuildDetectsImportCycle(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "import c\n",
		"c.py": "import a\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(result.Cycles) != 1 {
		t.Fatalf("Expected exactly one cycle, got %d: %v", len(result.Cycles), result.Cycles)
	}
	cyc := result.Cycles[0]
	if len(cyc) != 4 || cyc[0] != cyc[len(cyc)-1] {
		t.Fatalf("Cycle should close on itself: %v", cyc)
	}
	if cyc[0] != "a.py" {
		t.Errorf("Cycle should lead with smallest member, got %v", cyc)
	}
}

func TestBuildProjectNotFound(t *testing.T) {
	_, err := NewBuilder().Build(context.Background(), "/nonexistent/project/dir", nil)
	if !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("Expected ErrProjectNotFound, got %v", err)
	}
}

func TestBuildModuleLimitTruncates(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
		"c.py": "z = 3\n",
	})

	result, err := NewBuilder(WithMaxModules(2)).Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !result.Truncated || result.TruncationReason != TruncationModuleLimit {
		t.Fatalf("Expected module_limit truncation, got %v/%s", result.Truncated, result.TruncationReason)
	}
	if result.ModulesScanned != 2 {
		t.Fatalf("Expected 2 modules scanned, got %d", result.ModulesScanned)
	}
	// The cut follows sorted order, so a.py and b.py survive.
	for _, id := range []string{"a.py", "b.py"} {
		if _, ok := result.Graph.IndexOf(id); !ok {
			t.Errorf("Expected %s in truncated graph", id)
		}
	}
	if _, ok := result.Graph.IndexOf("c.py"); ok {
		t.Error("c.py should have been cut")
	}
}

func TestBuildTimeoutMarksTruncation(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"a.py": "x = 1\n",
		"b.py": "y = 2\n",
	})

	result, err := NewBuilder(WithTimeout(time.Nanosecond), WithWorkers(1)).
		Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !result.Truncated || result.TruncationReason != TruncationTimeout {
		t.Fatalf("Expected timeout truncation, got %v/%s", result.Truncated, result.TruncationReason)
	}
}

func TestBuildWildcardExpansion(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"mod.py":  "__all__ = [\"alpha\", \"beta\"]\n\ndef alpha():\n    pass\n\ndef beta():\n    pass\n\ndef _hidden():\n    pass\n",
		"user.py": "from mod import *\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	userIdx, _ := g.IndexOf("user.py")
	edges := g.EdgesFrom(userIdx)
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge from user.py, got %d", len(edges))
	}
	e := edges[0]
	if !e.Wildcard {
		t.Error("Expected wildcard edge")
	}
	want := map[string]bool{"alpha": true, "beta": true}
	if len(e.Names) != 2 {
		t.Fatalf("Wildcard names = %v, want alpha and beta only", e.Names)
	}
	for _, n := range e.Names {
		if !want[n] {
			t.Errorf("Unexpected wildcard name %q", n)
		}
	}
}

func TestBuildWildcardWithoutExportList(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"mod.py":  "def alpha():\n    pass\n\ndef _hidden():\n    pass\n",
		"user.py": "from mod import *\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	userIdx, _ := g.IndexOf("user.py")
	edges := g.EdgesFrom(userIdx)
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(edges))
	}
	if len(edges[0].Names) != 1 || edges[0].Names[0] != "alpha" {
		t.Errorf("Wildcard names = %v, want [alpha]", edges[0].Names)
	}
}

func TestBuildRecordsParseErrors(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"good.py":  "def ok():\n    pass\n",
		"weird.rb": "puts 'not supported'\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(result.ParseErrors) != 1 {
		t.Fatalf("Expected 1 parse error, got %d: %+v", len(result.ParseErrors), result.ParseErrors)
	}
	if result.ParseErrors[0].Path != "weird.rb" {
		t.Errorf("Parse error path = %s", result.ParseErrors[0].Path)
	}

	// The failed file still occupies a graph slot so ids stay stable.
	idx, ok := result.Graph.IndexOf("weird.rb")
	if !ok {
		t.Fatal("weird.rb missing from graph")
	}
	if result.Graph.Modules[idx].ParseOK {
		t.Error("weird.rb should be marked ParseOK=false")
	}
}

func TestBuildAliasChain(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"impl.py":   "def compute():\n    pass\n",
		"facade.py": "from impl import compute as calc\n",
		"app.py":    "from facade import calc as doit\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	appIdx, _ := g.IndexOf("app.py")
	ref, ok := g.ResolveSymbol(appIdx, "doit")
	if !ok {
		t.Fatal("ResolveSymbol(doit) failed")
	}
	if got := g.Modules[ref.Module].ID; got != "impl.py" {
		t.Errorf("doit resolved to %s, want impl.py", got)
	}
}

func TestBuildLocalDefinitionWinsOverImport(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"other.py": "def helper():\n    pass\n",
		"main.py":  "from other import helper\n\ndef helper():\n    pass\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	mainIdx, _ := g.IndexOf("main.py")
	ref, ok := g.ResolveSymbol(mainIdx, "helper")
	if !ok {
		t.Fatal("ResolveSymbol(helper) failed")
	}
	if got := g.Modules[ref.Module].ID; got != "main.py" {
		t.Errorf("helper resolved to %s, want local main.py", got)
	}
}

func TestBuildUnresolvedExternalImport(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"main.py": "import requests\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(result.Unresolved) != 1 {
		t.Fatalf("Expected 1 unresolved import, got %d", len(result.Unresolved))
	}
	if result.Unresolved[0].Path != "requests" {
		t.Errorf("Unresolved path = %s", result.Unresolved[0].Path)
	}
}

func TestBuildJavaScriptRelativeImports(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"src/util.js": "export function clamp(x) { return x; }\n",
		"src/app.js":  "import { clamp } from './util';\n\nclamp(1);\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	appIdx, ok := g.IndexOf("src/app.js")
	if !ok {
		t.Fatal("src/app.js missing")
	}
	targets := g.Forward(appIdx)
	if len(targets) != 1 {
		t.Fatalf("Expected 1 forward edge, got %d", len(targets))
	}
	if got := g.Modules[targets[0]].ID; got != "src/util.js" {
		t.Errorf("Edge target = %s, want src/util.js", got)
	}

	ref, ok := g.ResolveSymbol(appIdx, "clamp")
	if !ok {
		t.Fatal("ResolveSymbol(clamp) failed")
	}
	if got := g.Modules[ref.Module].ID; got != "src/util.js" {
		t.Errorf("clamp resolved to %s", got)
	}
}

func TestBuildSameNamedModulesUnderTwoRoots(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"alpha/m.py": "def go():\n    pass\n",
		"beta/m.py":  "def go():\n    pass\n",
		"main.py":    "import m\n",
	})

	// The winning edge must not depend on map iteration order: the
	// first-scanned candidate (alpha/m.py) wins on every run.
	for run := 0; run < 25; run++ {
		result, err := NewBuilder().Build(context.Background(), root, files)
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		g := result.Graph

		mainIdx, ok := g.IndexOf("main.py")
		if !ok {
			t.Fatal("main.py missing from graph")
		}
		targets := g.Forward(mainIdx)
		if len(targets) != 1 {
			t.Fatalf("run %d: expected 1 forward edge, got %d", run, len(targets))
		}
		if got := g.Modules[targets[0]].ID; got != "alpha/m.py" {
			t.Fatalf("run %d: import m resolved to %s, want alpha/m.py", run, got)
		}
	}
}

func TestBuildLeavesInputSliceIntact(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"zz.py": "x = 1\n",
		"aa.py": "y = 2\n",
		"mm.rb": "puts 1\n",
	})
	// Force unsorted input so an in-place sort would be visible.
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	before := append([]string(nil), files...)

	filter := func(p string) bool { return filepath.Ext(p) == ".py" }
	if _, err := NewBuilder(WithFileFilter(filter)).Build(context.Background(), root, files); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(files) != len(before) {
		t.Fatalf("Input slice resized: %d -> %d", len(before), len(files))
	}
	for i := range before {
		if files[i] != before[i] {
			t.Errorf("files[%d] changed: %s -> %s", i, before[i], files[i])
		}
	}
}

func TestResolveSymbolLongReExportChain(t *testing.T) {
	fixture := map[string]string{
		"origin.py": "def target():\n    pass\n",
	}
	prev := "origin"
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("hop%02d", i)
		fixture[name+".py"] = fmt.Sprintf("from %s import target\n", prev)
		prev = name
	}
	fixture["app.py"] = fmt.Sprintf("from %s import target\n", prev)
	root, files := writeProject(t, fixture)

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	appIdx, _ := g.IndexOf("app.py")
	ref, ok := g.ResolveSymbol(appIdx, "target")
	if !ok {
		t.Fatal("ResolveSymbol(target) failed")
	}
	if got := g.Modules[ref.Module].ID; got != "origin.py" {
		t.Errorf("target resolved to %s, want origin.py", got)
	}
}

func TestResolveSymbolCyclicReExportTerminates(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"a.py": "from b import ghost\n",
		"b.py": "from a import ghost\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	aIdx, _ := g.IndexOf("a.py")
	if _, ok := g.ResolveSymbol(aIdx, "ghost"); ok {
		t.Error("ghost has no definition anywhere and must not resolve")
	}
}

func TestFanCounts(t *testing.T) {
	root, files := writeProject(t, map[string]string{
		"hub.py": "def shared():\n    pass\n",
		"a.py":   "import hub\n",
		"b.py":   "import hub\n",
	})

	result, err := NewBuilder().Build(context.Background(), root, files)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	g := result.Graph

	hubIdx, _ := g.IndexOf("hub.py")
	if got := g.FanIn(hubIdx); got != 2 {
		t.Errorf("FanIn(hub) = %d, want 2", got)
	}
	if got := g.FanOut(hubIdx); got != 0 {
		t.Errorf("FanOut(hub) = %d, want 0", got)
	}
}
