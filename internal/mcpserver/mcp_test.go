package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Zeeeepa/scalpel/internal/output"
	"github.com/Zeeeepa/scalpel/pkg/analyzer/neighborhood"
)

// TestServerCreation verifies the MCP server can be created without panicking.
func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test")
	if server == nil {
		t.Fatal("NewServer() returned nil")
	}
	if server.server == nil {
		t.Fatal("NewServer().server is nil")
	}
}

// TestServerCreationEmptyVersion verifies an empty version is accepted.
func TestServerCreationEmptyVersion(t *testing.T) {
	server := NewServer("")
	if server == nil {
		t.Fatal("NewServer(\"\") returned nil")
	}
}

// TestToolDescriptions verifies all description functions return non-empty strings.
func TestToolDescriptions(t *testing.T) {
	descriptions := map[string]func() string{
		"dependencies": describeDependencies,
		"taint":        describeTaint,
		"neighborhood": describeNeighborhood,
		"cycles":       describeCycles,
	}

	for name, fn := range descriptions {
		t.Run(name, func(t *testing.T) {
			desc := fn()
			if desc == "" {
				t.Errorf("%s description is empty", name)
			}
			if !strings.Contains(desc, "USE WHEN:") {
				t.Errorf("%s description missing USE WHEN section", name)
			}
			if !strings.Contains(desc, "INTERPRETING RESULTS:") {
				t.Errorf("%s description missing INTERPRETING RESULTS section", name)
			}
			if !strings.Contains(desc, "METRICS RETURNED:") {
				t.Errorf("%s description missing METRICS RETURNED section", name)
			}
		})
	}
}

// TestGetPath verifies path handling defaults.
func TestGetPath(t *testing.T) {
	tests := []struct {
		name     string
		input    AnalyzeInput
		expected string
	}{
		{"empty path defaults to current dir", AnalyzeInput{}, "."},
		{"explicit path returned as-is", AnalyzeInput{Path: "/foo/bar"}, "/foo/bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPath(tt.input); got != tt.expected {
				t.Errorf("getPath() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestGetFormat verifies format parsing logic.
func TestGetFormat(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected output.Format
	}{
		{"empty defaults to toon", "", output.FormatTOON},
		{"json format", "json", output.FormatJSON},
		{"toon explicit", "toon", output.FormatTOON},
		{"unknown defaults to toon", "xml", output.FormatTOON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := getFormat(AnalyzeInput{Format: tt.format})
			if result != tt.expected {
				t.Errorf("getFormat(%q) = %v, want %v", tt.format, result, tt.expected)
			}
		})
	}
}

// TestParseDirection verifies direction parsing.
func TestParseDirection(t *testing.T) {
	tests := []struct {
		in       string
		expected neighborhood.Direction
	}{
		{"out", neighborhood.DirOut},
		{"in", neighborhood.DirIn},
		{"both", neighborhood.DirBoth},
		{"", neighborhood.DirBoth},
		{"sideways", neighborhood.DirBoth},
	}

	for _, tt := range tests {
		if got := parseDirection(tt.in); got != tt.expected {
			t.Errorf("parseDirection(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}

// TestToolError verifies error result formatting.
func TestToolError(t *testing.T) {
	result, _, err := toolError("test error message")
	if err != nil {
		t.Fatalf("toolError returned unexpected error: %v", err)
	}
	if result == nil {
		t.Fatal("toolError returned nil result")
	}
	if !result.IsError {
		t.Error("toolError result.IsError should be true")
	}
	if len(result.Content) == 0 {
		t.Fatal("toolError result has no content")
	}
	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("toolError content is not TextContent: %T", result.Content[0])
	}
	if textContent.Text != "Error: test error message" {
		t.Errorf("toolError text = %q, want %q", textContent.Text, "Error: test error message")
	}
}

// TestToolResult verifies successful result formatting.
func TestToolResult(t *testing.T) {
	data := map[string]any{
		"key": "value",
		"num": 42,
	}
	result, _, err := toolResult(data, output.FormatTOON)
	if err != nil {
		t.Fatalf("toolResult returned error: %v", err)
	}
	if result == nil {
		t.Fatal("toolResult returned nil")
	}
	if result.IsError {
		t.Error("toolResult.IsError should be false")
	}
	textContent, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("toolResult content is not TextContent: %T", result.Content[0])
	}
	if textContent.Text == "" {
		t.Error("toolResult text is empty")
	}
}

// TestFormatOutput verifies both serialization formats produce output.
func TestFormatOutput(t *testing.T) {
	data := map[string]any{
		"name":  "test",
		"value": 123,
	}

	jsonOut, err := formatOutput(data, output.FormatJSON)
	if err != nil {
		t.Fatalf("formatOutput(json) failed: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal([]byte(jsonOut), &round); err != nil {
		t.Errorf("json output does not round-trip: %v", err)
	}

	toonOut, err := formatOutput(data, output.FormatTOON)
	if err != nil {
		t.Fatalf("formatOutput(toon) failed: %v", err)
	}
	if toonOut == "" {
		t.Error("toon output is empty")
	}
}

// TestInputStructTags verifies all input structs marshal cleanly.
func TestInputStructTags(t *testing.T) {
	inputs := map[string]any{
		"DependenciesInput": DependenciesInput{},
		"TaintInput":        TaintInput{},
		"NeighborhoodInput": NeighborhoodInput{},
		"CyclesInput":       CyclesInput{},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(input)
			if err != nil {
				t.Errorf("failed to marshal: %v", err)
			}
			if len(data) == 0 {
				t.Error("marshaled to empty data")
			}
		})
	}
}

func writeFixtureProject(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	files := map[string]string{
		"util.py": `def sanitize(s):
    return s.strip()

def render(s):
    return "<p>" + s + "</p>"
`,
		"main.py": `import os
from util import render

def handler():
    name = input()
    os.system(name)
    return render(name)
`,
	}
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestHandleAnalyzeDependencies tests the dependency tracing tool handler.
func TestHandleAnalyzeDependencies(t *testing.T) {
	tmpDir := writeFixtureProject(t)

	input := DependenciesInput{
		AnalyzeInput: AnalyzeInput{Path: tmpDir, Format: "json"},
		Module:       "main.py",
		Symbol:       "handler",
	}

	result, _, err := handleAnalyzeDependencies(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleAnalyzeDependencies returned error: %v", err)
	}
	if result == nil {
		t.Fatal("handleAnalyzeDependencies returned nil result")
	}
	if result.IsError {
		textContent := result.Content[0].(*mcp.TextContent)
		t.Fatalf("handleAnalyzeDependencies returned error: %s", textContent.Text)
	}

	textContent := result.Content[0].(*mcp.TextContent)
	if !strings.Contains(textContent.Text, "render") {
		t.Errorf("expected render in dependency output, got: %s", textContent.Text)
	}
}

// TestHandleAnalyzeDependenciesMissingArgs verifies required argument validation.
func TestHandleAnalyzeDependenciesMissingArgs(t *testing.T) {
	result, _, err := handleAnalyzeDependencies(context.Background(), nil, DependenciesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing module and symbol")
	}
}

// TestHandleScanTaint tests the taint scanning tool handler.
func TestHandleScanTaint(t *testing.T) {
	tmpDir := writeFixtureProject(t)

	input := TaintInput{
		AnalyzeInput: AnalyzeInput{Path: tmpDir, Format: "json"},
	}

	result, _, err := handleScanTaint(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleScanTaint returned error: %v", err)
	}
	if result.IsError {
		textContent := result.Content[0].(*mcp.TextContent)
		t.Fatalf("handleScanTaint returned error: %s", textContent.Text)
	}

	textContent := result.Content[0].(*mcp.TextContent)
	if !strings.Contains(textContent.Text, "os.system") {
		t.Errorf("expected os.system sink in taint output, got: %s", textContent.Text)
	}
}

// TestHandleScanTaintBadPack verifies signature pack errors surface as tool errors.
func TestHandleScanTaintBadPack(t *testing.T) {
	tmpDir := writeFixtureProject(t)

	input := TaintInput{
		AnalyzeInput:   AnalyzeInput{Path: tmpDir},
		SignaturePacks: []string{filepath.Join(tmpDir, "missing-pack.yaml")},
	}

	result, _, err := handleScanTaint(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing signature pack")
	}
}

// TestHandleGraphNeighborhood tests the neighborhood extraction tool handler.
func TestHandleGraphNeighborhood(t *testing.T) {
	tmpDir := writeFixtureProject(t)

	input := NeighborhoodInput{
		AnalyzeInput: AnalyzeInput{Path: tmpDir, Format: "json"},
		Center:       "main.py",
		Hops:         2,
		Direction:    "out",
	}

	result, _, err := handleGraphNeighborhood(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleGraphNeighborhood returned error: %v", err)
	}
	if result.IsError {
		textContent := result.Content[0].(*mcp.TextContent)
		t.Fatalf("handleGraphNeighborhood returned error: %s", textContent.Text)
	}

	textContent := result.Content[0].(*mcp.TextContent)
	if !strings.Contains(textContent.Text, "util.py") {
		t.Errorf("expected util.py in neighborhood output, got: %s", textContent.Text)
	}
}

// TestHandleGraphNeighborhoodMissingCenter verifies required argument validation.
func TestHandleGraphNeighborhoodMissingCenter(t *testing.T) {
	result, _, err := handleGraphNeighborhood(context.Background(), nil, NeighborhoodInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError for missing center")
	}
}

// TestHandleGraphNeighborhoodTokenBudget verifies over-budget results are rejected.
func TestHandleGraphNeighborhoodTokenBudget(t *testing.T) {
	tmpDir := writeFixtureProject(t)

	input := NeighborhoodInput{
		AnalyzeInput: AnalyzeInput{Path: tmpDir, Format: "json"},
		Center:       "main.py",
		TokenBudget:  1,
	}

	result, _, err := handleGraphNeighborhood(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Error("expected IsError when the result exceeds the token budget")
	}
	textContent := result.Content[0].(*mcp.TextContent)
	if !strings.Contains(textContent.Text, "budget") {
		t.Errorf("expected budget hint in error, got: %s", textContent.Text)
	}
}

// TestHandleFindCycles tests the cycle detection tool handler.
func TestHandleFindCycles(t *testing.T) {
	tmpDir := t.TempDir()
	files := map[string]string{
		"a.py": "import b\n\ndef fa():\n    return b.fb()\n",
		"b.py": "import a\n\ndef fb():\n    return 1\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	input := CyclesInput{
		AnalyzeInput: AnalyzeInput{Path: tmpDir, Format: "json"},
	}

	result, _, err := handleFindCycles(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handleFindCycles returned error: %v", err)
	}
	if result.IsError {
		textContent := result.Content[0].(*mcp.TextContent)
		t.Fatalf("handleFindCycles returned error: %s", textContent.Text)
	}

	textContent := result.Content[0].(*mcp.TextContent)
	if !strings.Contains(textContent.Text, "a.py") || !strings.Contains(textContent.Text, "b.py") {
		t.Errorf("expected cycle members in output, got: %s", textContent.Text)
	}
}

// TestGenerateManifest verifies the server manifest round-trips as JSON.
func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatalf("GenerateManifest returned error: %v", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.Name != "io.github.Zeeeepa/scalpel" {
		t.Errorf("manifest name = %q", manifest.Name)
	}
	if manifest.Version != "1.2.3" {
		t.Errorf("manifest version = %q, want 1.2.3", manifest.Version)
	}
	if len(manifest.Packages) == 0 {
		t.Fatal("manifest has no packages")
	}
	if manifest.Packages[0].Transport.Type != "stdio" {
		t.Errorf("transport = %q, want stdio", manifest.Packages[0].Transport.Type)
	}
}

// TestGenerateManifestEmptyVersion verifies fallback version.
func TestGenerateManifestEmptyVersion(t *testing.T) {
	data, err := GenerateManifest("")
	if err != nil {
		t.Fatalf("GenerateManifest returned error: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if manifest.Version != "0.0.0" {
		t.Errorf("manifest version = %q, want 0.0.0", manifest.Version)
	}
}

// TestParsePromptFile verifies frontmatter extraction from prompt files.
func TestParsePromptFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantDesc string
		wantArgs []string
		wantBody string
	}{
		{
			name:     "frontmatter and body",
			content:  "---\ndescription: Do the thing\n---\n\nBody text here.\n",
			wantDesc: "Do the thing",
			wantBody: "Body text here.\n",
		},
		{
			name:     "frontmatter with arguments",
			content:  "---\ndescription: Scan it\narguments:\n  - path\n  - symbol\n---\n\nScan {{path}}.\n",
			wantDesc: "Scan it",
			wantArgs: []string{"path", "symbol"},
			wantBody: "Scan {{path}}.\n",
		},
		{
			name:     "no frontmatter",
			content:  "Just a body.\n",
			wantDesc: "",
			wantBody: "Just a body.\n",
		},
		{
			name:     "unterminated frontmatter",
			content:  "---\ndescription: never closed\n",
			wantDesc: "",
			wantBody: "---\ndescription: never closed\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, body := parsePromptFile([]byte(tt.content))
			if spec.Description != tt.wantDesc {
				t.Errorf("description = %q, want %q", spec.Description, tt.wantDesc)
			}
			if len(spec.Arguments) != len(tt.wantArgs) {
				t.Fatalf("arguments = %v, want %v", spec.Arguments, tt.wantArgs)
			}
			for i, arg := range tt.wantArgs {
				if spec.Arguments[i] != arg {
					t.Errorf("arguments[%d] = %q, want %q", i, spec.Arguments[i], arg)
				}
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

// TestEmbeddedPrompts verifies every embedded prompt file has a description.
func TestEmbeddedPrompts(t *testing.T) {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		t.Fatalf("failed to read embedded prompts: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded prompt files")
	}

	for _, entry := range entries {
		t.Run(entry.Name(), func(t *testing.T) {
			content, err := promptFiles.ReadFile(filepath.Join("prompts", entry.Name()))
			if err != nil {
				t.Fatalf("failed to read %s: %v", entry.Name(), err)
			}
			spec, body := parsePromptFile(content)
			if spec.Description == "" {
				t.Errorf("%s has no description frontmatter", entry.Name())
			}
			if strings.TrimSpace(body) == "" {
				t.Errorf("%s has an empty body", entry.Name())
			}
			// Every placeholder in the body must have a declared argument.
			declared := make(map[string]bool)
			for _, arg := range spec.Arguments {
				declared[arg] = true
				if !strings.Contains(body, "{{"+arg+"}}") {
					t.Errorf("%s declares unused argument %q", entry.Name(), arg)
				}
			}
			rest := body
			for {
				start := strings.Index(rest, "{{")
				if start < 0 {
					break
				}
				end := strings.Index(rest[start:], "}}")
				if end < 0 {
					break
				}
				name := rest[start+2 : start+end]
				if !declared[name] {
					t.Errorf("%s uses undeclared placeholder %q", entry.Name(), name)
				}
				rest = rest[start+end+2:]
			}
		})
	}
}

// TestPromptHandler verifies prompt handlers produce a user message.
func TestPromptHandler(t *testing.T) {
	spec := promptSpec{Description: "audit something"}
	handler := makePromptHandler(spec, "Step one.\nStep two.\n")

	result, err := handler(context.Background(), &mcp.GetPromptRequest{})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.Description != "audit something" {
		t.Errorf("description = %q", result.Description)
	}
	if len(result.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(result.Messages))
	}
	msg := result.Messages[0]
	if msg.Role != "user" {
		t.Errorf("role = %q, want user", msg.Role)
	}
	textContent, ok := msg.Content.(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", msg.Content)
	}
	if !strings.Contains(textContent.Text, "Step one.") {
		t.Errorf("message body missing content: %q", textContent.Text)
	}
}

// TestPromptHandlerSubstitutesArguments verifies declared arguments fill
// their placeholders and absent ones leave the placeholder in place.
func TestPromptHandlerSubstitutesArguments(t *testing.T) {
	spec := promptSpec{
		Description: "map deps",
		Arguments:   []string{"module", "symbol"},
	}
	handler := makePromptHandler(spec, "Trace {{symbol}} in {{module}}.\n")

	result, err := handler(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{
			Arguments: map[string]string{"module": "pkg/core.py"},
		},
	})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	text := result.Messages[0].Content.(*mcp.TextContent).Text
	if !strings.Contains(text, "in pkg/core.py") {
		t.Errorf("module argument not substituted: %q", text)
	}
	if !strings.Contains(text, "{{symbol}}") {
		t.Errorf("absent argument should keep its placeholder: %q", text)
	}
}
