// Package mcp exposes the workspace index to editors and agents as MCP
// tools over stdio.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/phpindex/pkg/features"
	"github.com/gnana997/phpindex/pkg/mcplog"
	"github.com/gnana997/phpindex/pkg/workspace"
)

const serverVersion = "0.1.0-dev"

// Server implements the MCP server for phpindex, exposing symbol search,
// navigation and completion tools over the workspace index.
type Server struct {
	mcpServer *server.MCPServer
	workspace *workspace.Workspace
	features  *features.Service
	logger    *mcplog.Logger // may be nil if logging is disabled
}

// NewServer creates an MCP server over an initialised workspace. Pass nil
// for logger to disable tool-call logging.
func NewServer(ws *workspace.Workspace, logger *mcplog.Logger) *Server {
	s := &Server{
		workspace: ws,
		features:  features.NewService(ws),
		logger:    logger,
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if logger != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}

	s.mcpServer = server.NewMCPServer("phpindex", serverVersion, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: workspaceSymbolsTool(), Handler: s.handleWorkspaceSymbols},
		server.ServerTool{Tool: documentSymbolsTool(), Handler: s.handleDocumentSymbols},
		server.ServerTool{Tool: hoverTool(), Handler: s.handleHover},
		server.ServerTool{Tool: definitionTool(), Handler: s.handleDefinition},
		server.ServerTool{Tool: referencesTool(), Handler: s.handleReferences},
		server.ServerTool{Tool: completionTool(), Handler: s.handleCompletion},
		server.ServerTool{Tool: signatureHelpTool(), Handler: s.handleSignatureHelp},
		server.ServerTool{Tool: openDocumentTool(), Handler: s.handleOpenDocument},
		server.ServerTool{Tool: indexStatusTool(), Handler: s.handleIndexStatus},
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Close shuts down the logger if one is active. Should be deferred after
// NewServer.
func (s *Server) Close() error {
	if s.logger != nil {
		return s.logger.Close()
	}
	return nil
}
