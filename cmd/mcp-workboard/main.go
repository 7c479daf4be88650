// mcp-workboard: WorkBoard OKR MCP Server
//
// Exposes the WorkBoard goal-tracking API as MCP tools over stdio, so an
// AI agent can read objectives and key results and check in progress
// without logging into WorkBoard.
//
// Usage:
//
//	mcp-workboard serve     # Start MCP server (stdio transport)
//	mcp-workboard version   # Print version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	wbserver "github.com/crunchtools/mcp-workboard/internal/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("mcp-workboard v%s\n", wbserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// Best-effort .env loading; the environment itself wins.
	_ = godotenv.Load()

	s, cleanup, err := wbserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mcp-workboard v%s - WorkBoard OKR MCP Server

Usage:
  mcp-workboard serve     Start the MCP server (stdio transport)
  mcp-workboard version   Print version

Configuration:
  WORKBOARD_API_TOKEN   required; WorkBoard API bearer token
  WORKBOARD_AUDIT_DB    optional; sqlite file recording write operations

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "workboard": {
        "command": "mcp-workboard",
        "args": ["serve"],
        "env": { "WORKBOARD_API_TOKEN": "..." }
      }
    }
  }
`, wbserver.Version)
}
