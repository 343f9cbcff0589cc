package mcpserver

import (
	"bytes"
	"context"
	"embed"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFiles embed.FS

// promptSpec is the parsed frontmatter of one embedded prompt file.
// Arguments listed here surface as optional MCP prompt arguments and
// substitute {{name}} placeholders in the body.
type promptSpec struct {
	Description string   `yaml:"description"`
	Arguments   []string `yaml:"arguments"`
}

// registerPrompts registers every embedded workflow prompt. A file that
// fails to parse still registers with its raw body so the workflow stays
// reachable.
func (s *Server) registerPrompts() {
	entries, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		content, err := promptFiles.ReadFile(filepath.Join("prompts", entry.Name()))
		if err != nil {
			continue
		}
		spec, body := parsePromptFile(content)

		prompt := &mcp.Prompt{
			Name:        strings.TrimSuffix(entry.Name(), ".md"),
			Description: spec.Description,
		}
		for _, arg := range spec.Arguments {
			prompt.Arguments = append(prompt.Arguments, &mcp.PromptArgument{
				Name:     arg,
				Required: false,
			})
		}
		s.server.AddPrompt(prompt, makePromptHandler(spec, body))
	}
}

// parsePromptFile splits YAML frontmatter from the markdown body. Content
// without a closed frontmatter block comes back whole as the body.
func parsePromptFile(content []byte) (promptSpec, string) {
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return promptSpec{}, string(content)
	}

	rest := content[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end == -1 {
		return promptSpec{}, string(content)
	}

	var spec promptSpec
	if err := yaml.Unmarshal(rest[:end], &spec); err != nil {
		return promptSpec{}, string(content)
	}

	body := strings.TrimPrefix(string(rest[end+5:]), "\n")
	return spec, body
}

// makePromptHandler returns a handler producing one user message with the
// prompt body. Declared arguments replace {{name}} placeholders; absent
// arguments leave the placeholder for the caller to fill in.
func makePromptHandler(spec promptSpec, body string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		text := body
		if req.Params != nil {
			for _, arg := range spec.Arguments {
				if v, ok := req.Params.Arguments[arg]; ok && v != "" {
					text = strings.ReplaceAll(text, "{{"+arg+"}}", v)
				}
			}
		}
		return &mcp.GetPromptResult{
			Description: spec.Description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: text},
				},
			},
		}, nil
	}
}
