package taint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/Zeeeepa/scalpel/pkg/parser"
)

//go:embed signatures.yaml
var embeddedSignatures []byte

//go:embed pack_schema.json
var packSchema []byte

// Signature is one named pattern group. Sinks carry the CWE they map to.
type Signature struct {
	ID       string   `yaml:"id" json:"id"`
	CWE      string   `yaml:"cwe,omitempty" json:"cwe,omitempty"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// LanguageSignatures holds the three signature tables for one language.
type LanguageSignatures struct {
	Sources    []Signature `yaml:"sources" json:"sources"`
	Sinks      []Signature `yaml:"sinks" json:"sinks"`
	Sanitizers []Signature `yaml:"sanitizers" json:"sanitizers"`
}

// SignatureSet maps language names to their signature tables.
type SignatureSet struct {
	Languages map[string]LanguageSignatures `yaml:"languages" json:"languages"`
}

// DefaultSignatures decodes the embedded signature tables.
func DefaultSignatures() (*SignatureSet, error) {
	var set SignatureSet
	if err := yaml.Unmarshal(embeddedSignatures, &set); err != nil {
		return nil, fmt.Errorf("failed to decode embedded signatures: %w", err)
	}
	return &set, nil
}

// LoadPack reads a user signature pack (YAML or JSON), validates it against
// the pack schema, and returns the decoded set.
func LoadPack(path string) (*SignatureSet, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signature pack: %w", err)
	}

	// Normalize to a JSON value for schema validation.
	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		doc, err = jsonschema.UnmarshalJSON(bytes.NewReader(content))
		if err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
		}
	default:
		var y any
		if err := yaml.Unmarshal(content, &y); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
		jsonBytes, err := json.Marshal(y)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s: %w", path, err)
		}
		doc, err = jsonschema.UnmarshalJSON(bytes.NewReader(jsonBytes))
		if err != nil {
			return nil, fmt.Errorf("failed to normalize %s: %w", path, err)
		}
	}

	if err := validatePack(doc); err != nil {
		return nil, fmt.Errorf("signature pack %s: %w", path, err)
	}

	var set SignatureSet
	if err := yaml.Unmarshal(content, &set); err != nil {
		return nil, fmt.Errorf("failed to decode signature pack %s: %w", path, err)
	}
	return &set, nil
}

func validatePack(doc any) error {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(packSchema))
	if err != nil {
		return fmt.Errorf("failed to parse pack schema: %w", err)
	}
	if err := compiler.AddResource("pack_schema.json", schemaDoc); err != nil {
		return fmt.Errorf("failed to register pack schema: %w", err)
	}
	schema, err := compiler.Compile("pack_schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile pack schema: %w", err)
	}
	return schema.Validate(doc)
}

// Merge folds another set into this one, appending per-language tables.
func (s *SignatureSet) Merge(other *SignatureSet) {
	if other == nil {
		return
	}
	if s.Languages == nil {
		s.Languages = make(map[string]LanguageSignatures)
	}
	for lang, sigs := range other.Languages {
		merged := s.Languages[lang]
		merged.Sources = append(merged.Sources, sigs.Sources...)
		merged.Sinks = append(merged.Sinks, sigs.Sinks...)
		merged.Sanitizers = append(merged.Sanitizers, sigs.Sanitizers...)
		s.Languages[lang] = merged
	}
}

// ForLanguage returns the tables for a parser language. TypeScript and TSX
// share the JavaScript tables unless overridden.
func (s *SignatureSet) ForLanguage(lang parser.Language) LanguageSignatures {
	if sigs, ok := s.Languages[string(lang)]; ok {
		return sigs
	}
	switch lang {
	case parser.LangTypeScript, parser.LangTSX:
		return s.Languages["javascript"]
	}
	return LanguageSignatures{}
}

// matchPattern reports whether a flattened expression matches a signature
// pattern: exact, or a trailing attribute path segment.
func matchPattern(expr, pattern string) bool {
	if expr == pattern {
		return true
	}
	return strings.HasSuffix(expr, "."+pattern)
}

// matchAny returns the first signature whose pattern matches the expression.
func matchAny(expr string, sigs []Signature) (Signature, string, bool) {
	for _, sig := range sigs {
		for _, p := range sig.Patterns {
			if matchPattern(expr, p) {
				return sig, p, true
			}
		}
	}
	return Signature{}, "", false
}
