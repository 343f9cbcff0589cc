package taint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zeeeepa/scalpel/pkg/parser"
)

func TestDefaultSignatures(t *testing.T) {
	set, err := DefaultSignatures()
	require.NoError(t, err)

	for _, lang := range []string{"python", "javascript", "go"} {
		sigs, ok := set.Languages[lang]
		require.True(t, ok, "missing tables for %s", lang)
		assert.NotEmpty(t, sigs.Sources, "%s sources", lang)
		assert.NotEmpty(t, sigs.Sinks, "%s sinks", lang)
		assert.NotEmpty(t, sigs.Sanitizers, "%s sanitizers", lang)
		for _, sink := range sigs.Sinks {
			assert.Regexp(t, `^CWE-\d+$`, sink.CWE, "sink %s", sink.ID)
		}
	}
}

func TestForLanguageTypeScriptFallsBackToJavaScript(t *testing.T) {
	set, err := DefaultSignatures()
	require.NoError(t, err)

	ts := set.ForLanguage(parser.LangTypeScript)
	js := set.ForLanguage(parser.LangJavaScript)
	assert.Equal(t, len(js.Sources), len(ts.Sources))
	assert.NotEmpty(t, ts.Sinks)
}

func TestLoadPackValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	content := `languages:
  python:
    sinks:
      - id: custom-ldap
        cwe: CWE-90
        patterns: ["ldap.search"]
    sanitizers:
      - id: custom-escape
        patterns: ["ldap.escape_filter_chars"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	pack, err := LoadPack(path)
	require.NoError(t, err)
	require.Len(t, pack.Languages["python"].Sinks, 1)
	assert.Equal(t, "CWE-90", pack.Languages["python"].Sinks[0].CWE)
}

func TestLoadPackRejectsMissingCWE(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := `languages:
  python:
    sinks:
      - id: no-cwe
        patterns: ["x"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadPack(path)
	assert.Error(t, err)
}

func TestLoadPackRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	content := `languages:
  python:
    sinks:
      - id: x
        cwe: CWE-89
        patterns: ["y"]
        severity: high
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadPack(path)
	assert.Error(t, err)
}

func TestMergeAppendsTables(t *testing.T) {
	base, err := DefaultSignatures()
	require.NoError(t, err)
	before := len(base.Languages["python"].Sinks)

	base.Merge(&SignatureSet{Languages: map[string]LanguageSignatures{
		"python": {Sinks: []Signature{{ID: "extra", CWE: "CWE-90", Patterns: []string{"p"}}}},
	}})
	assert.Len(t, base.Languages["python"].Sinks, before+1)
}

func TestMatchPattern(t *testing.T) {
	assert.True(t, matchPattern("input", "input"))
	assert.True(t, matchPattern("self.cursor.execute", "cursor.execute"))
	assert.False(t, matchPattern("reinput", "input"))
	assert.False(t, matchPattern("executemany", "execute"))
}
