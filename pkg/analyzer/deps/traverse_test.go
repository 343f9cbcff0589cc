package deps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Zeeeepa/scalpel/pkg/graph"
)

func buildGraph(t *testing.T, files map[string]string) *graph.ModuleGraph {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		paths = append(paths, abs)
	}
	result, err := graph.NewBuilder().Build(context.Background(), root, paths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return result.Graph
}

const mainSrc = "from utils import helper\n\ndef process():\n    helper()\n"
const utilsSrc = "import main\n\ndef helper():\n    other()\n\ndef other():\n    pass\n"

func TestTraverseConfidenceDecay(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"main.py":  mainSrc,
		"utils.py": utilsSrc,
	})

	result, err := New(WithMaxDepth(3), WithDecay(0.8)).
		Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	if len(result.Records) != 3 {
		t.Fatalf("Expected 3 records (process, helper, other), got %d: %+v", len(result.Records), result.Records)
	}
	want := []struct {
		symbol     string
		depth      int
		confidence float64
	}{
		{"process", 0, 1.0},
		{"helper", 1, 0.8},
		{"other", 2, 0.8 * 0.8},
	}
	for i, w := range want {
		r := result.Records[i]
		if r.Symbol != w.symbol || r.Depth != w.depth {
			t.Errorf("Record %d = %s@%d, want %s@%d", i, r.Symbol, r.Depth, w.symbol, w.depth)
		}
		if r.Confidence != w.confidence {
			t.Errorf("Confidence(%s) = %v, want %v", r.Symbol, r.Confidence, w.confidence)
		}
		if i > 0 && r.Confidence >= result.Records[i-1].Confidence {
			t.Errorf("Confidence must strictly decrease with depth")
		}
	}
	if result.DepthReached != 2 {
		t.Errorf("DepthReached = %d, want 2", result.DepthReached)
	}
	if result.ModulesAnalyzed != 2 {
		t.Errorf("ModulesAnalyzed = %d, want 2", result.ModulesAnalyzed)
	}
	if result.Truncated {
		t.Errorf("Unexpected truncation: %s", result.TruncationReason)
	}
}

func TestTraverseLowConfidenceFlaggedNotDropped(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"main.py":  mainSrc,
		"utils.py": utilsSrc,
	})

	result, err := New(WithMaxDepth(3), WithDecay(0.6)).
		Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	// 0.6^2 = 0.36 < 0.5: depth-2 record flagged but present.
	if len(result.Records) != 3 {
		t.Fatalf("Low-confidence records must be kept, got %d records", len(result.Records))
	}
	deep := result.Records[2]
	if !deep.LowConfidence {
		t.Errorf("Record at depth 2 with confidence %v should be flagged low confidence", deep.Confidence)
	}
	if result.Records[1].LowConfidence {
		t.Errorf("Record at depth 1 with confidence 0.6 should not be flagged")
	}
	if result.LowConfidenceCount != 1 {
		t.Errorf("LowConfidenceCount = %d, want 1", result.LowConfidenceCount)
	}
}

func TestTraverseTerminatesOnImportCycle(t *testing.T) {
	// main.py and utils.py import each other; traversal must terminate.
	g := buildGraph(t, map[string]string{
		"main.py":  "from utils import helper\n\ndef process():\n    helper()\n",
		"utils.py": "from main import process\n\ndef helper():\n    process()\n",
	})

	result, err := New(WithMaxDepth(3)).Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	// process and helper each appear once despite the cycle.
	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records, got %d: %+v", len(result.Records), result.Records)
	}
}

func TestTraverseDepthLimit(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"main.py":  mainSrc,
		"utils.py": utilsSrc,
	})

	result, err := New(WithMaxDepth(1)).Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("Expected 2 records at max depth 1, got %d", len(result.Records))
	}
	if result.DepthReached != 1 {
		t.Errorf("DepthReached = %d, want 1", result.DepthReached)
	}
	if !result.Truncated || result.TruncationReason != graph.TruncationDepthLimit {
		t.Errorf("Expected depth_limit truncation, got %v/%s", result.Truncated, result.TruncationReason)
	}
}

func TestTraverseModuleLimit(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"main.py":  mainSrc,
		"utils.py": utilsSrc,
	})

	result, err := New(WithMaxDepth(3), WithMaxModules(1)).
		Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	if result.ModulesAnalyzed > 1 {
		t.Errorf("ModulesAnalyzed = %d exceeds budget 1", result.ModulesAnalyzed)
	}
	if !result.Truncated || result.TruncationReason != graph.TruncationModuleLimit {
		t.Errorf("Expected module_limit truncation, got %v/%s", result.Truncated, result.TruncationReason)
	}
}

func TestTraverseSymbolNotFound(t *testing.T) {
	g := buildGraph(t, map[string]string{"main.py": "x = 1\n"})

	_, err := New().Traverse(context.Background(), g, "main.py", "missing")
	if !errors.Is(err, graph.ErrSymbolNotFound) {
		t.Fatalf("Expected ErrSymbolNotFound, got %v", err)
	}
}

func TestTraverseUnresolvedAccumulated(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"main.py": "from vanished import ghost\n\ndef process():\n    ghost()\n",
	})

	result, err := New().Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}
	if len(result.Unresolved) != 1 {
		t.Fatalf("Expected 1 unresolved ref, got %d", len(result.Unresolved))
	}
	if result.Unresolved[0].Name != "ghost" {
		t.Errorf("Unresolved name = %s", result.Unresolved[0].Name)
	}
}

func TestTraverseAmbiguityWarning(t *testing.T) {
	g := buildGraph(t, map[string]string{
		"a.py":    "def shared():\n    pass\n",
		"b.py":    "def shared():\n    pass\n",
		"main.py": "from a import shared\nfrom b import shared\n\ndef process():\n    shared()\n",
	})

	result, err := New().Traverse(context.Background(), g, "main.py", "process")
	if err != nil {
		t.Fatalf("Traverse: %v", err)
	}

	if len(result.Warnings) == 0 {
		t.Fatal("Expected an ambiguity warning")
	}
	// First module in scan order wins: a.py sorts before b.py.
	found := false
	for _, r := range result.Records {
		if r.Symbol == "shared" {
			found = true
			if r.Module != "a.py" {
				t.Errorf("shared resolved to %s, want a.py", r.Module)
			}
		}
	}
	if !found {
		t.Fatal("shared not reached")
	}
}
