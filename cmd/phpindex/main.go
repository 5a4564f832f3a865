package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/gnana997/phpindex/pkg/mcp"
	"github.com/gnana997/phpindex/pkg/mcplog"
	"github.com/gnana997/phpindex/pkg/util"
	"github.com/gnana997/phpindex/pkg/workspace"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "index":
		runIndex(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "symbols":
		runSymbols(os.Args[2:])
	case "version":
		fmt.Printf("phpindex %s\n", version)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup builds a workspace from the project config and scans rootPath.
func setup(rootPath string) (*workspace.Workspace, error) {
	cfg, err := loadProjectConfig()
	if err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}
	logger := util.NewLogger(loggerConfig(cfg))

	ws := workspace.New(workspaceConfig(cfg), logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	stats, err := ws.Initialise(ctx, rootPath)
	if err != nil {
		ws.Shutdown()
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "indexed %d files (%d failed) in %s, %d keys\n",
		stats.FilesIndexed, stats.FilesFailed, stats.TotalTime, stats.SymbolCount)
	return ws, nil
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func runIndex(args []string) {
	ws, err := setup(rootArg(args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "index failed: %v\n", err)
		os.Exit(1)
	}
	defer ws.Shutdown()
}

func runServe(args []string) {
	ws, err := setup(rootArg(args))
	if err != nil {
		fmt.Fprintf(os.Stderr, "serve failed: %v\n", err)
		os.Exit(1)
	}
	defer ws.Shutdown()

	if err := ws.Watch(); err != nil {
		fmt.Fprintf(os.Stderr, "watcher failed: %v\n", err)
	}

	logger, err := mcplog.NewLogger(os.Getenv("PHPINDEX_MCP_LOG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp log disabled: %v\n", err)
	}
	srv := mcpserver.NewServer(ws, logger)
	defer srv.Close()

	if err := srv.ServeStdio(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func runSymbols(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: phpindex symbols <query> [root]")
		os.Exit(1)
	}
	query := args[0]

	ws, err := setup(rootArg(args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "symbols failed: %v\n", err)
		os.Exit(1)
	}
	defer ws.Shutdown()

	for _, s := range ws.Symbols().Match(query, nil) {
		loc := ""
		if !s.Location.IsZero() {
			loc = fmt.Sprintf(" %s:%d", s.Location.URI, s.Location.Range.Start.Line+1)
		}
		fmt.Printf("%-14s %s%s\n", s.Kind, s.Name, loc)
	}
}

func printUsage() {
	fmt.Println(`phpindex — PHP workspace indexer

Usage:
  phpindex index [root]            scan a workspace and build the index
  phpindex serve [root]            scan, watch, and serve MCP tools on stdio
  phpindex symbols <query> [root]  prefix-search workspace symbols
  phpindex version                 print the version
  phpindex help                    show this help

Configuration is read from .phpindex/config.yaml in the working directory.
Set PHPINDEX_MCP_LOG to a file path to log MCP tool calls as JSONL.`)
}
