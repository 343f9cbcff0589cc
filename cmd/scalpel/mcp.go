package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Zeeeepa/scalpel/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes scalpel's
analyzers as tools that LLMs can invoke. This lets AI assistants trace
dependencies, scan for taint flows, and explore import graphs directly.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "scalpel": {
        "command": "scalpel",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_dependencies  Transitive dependencies of a symbol
  - scan_taint            Source-to-sink taint flows
  - graph_neighborhood    K-hop import neighborhood around a module
  - find_cycles           Circular import chains`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manifest",
				Usage: "Print the server.json manifest and exit",
			},
		},
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	if c.Bool("manifest") {
		data, err := mcpserver.GenerateManifest(version)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	server := mcpserver.NewServer(version)
	return server.Run(context.Background())
}
