package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gnana997/phpindex/pkg/symbol"
)

// jsonResult marshals v as the tool result payload.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// positionArgs extracts the uri/line/character triple shared by the
// position-based tools.
func positionArgs(req mcp.CallToolRequest) (string, symbol.Position, error) {
	uri, err := req.RequireString("uri")
	if err != nil {
		return "", symbol.Position{}, err
	}
	line, err := req.RequireFloat("line")
	if err != nil {
		return "", symbol.Position{}, err
	}
	char, err := req.RequireFloat("character")
	if err != nil {
		return "", symbol.Position{}, err
	}
	return uri, symbol.Position{Line: uint32(line), Character: uint32(char)}, nil
}

// symbolSummary is the wire form of a symbol in tool results.
type symbolSummary struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Scope     string `json:"scope,omitempty"`
	Type      string `json:"type,omitempty"`
	Signature string `json:"signature,omitempty"`
	URI       string `json:"uri,omitempty"`
	Line      uint32 `json:"line"`
}

func summarize(s *symbol.Symbol) symbolSummary {
	out := symbolSummary{
		Name:  s.Name,
		Kind:  s.Kind.String(),
		Scope: s.Scope,
		Type:  s.Type,
		URI:   s.Location.URI,
		Line:  s.Location.Range.Start.Line,
	}
	if s.Kind.IsCallable() {
		out.Signature = symbol.NotFqn(s.Name) + s.SignatureString()
	}
	return out
}

func (s *Server) handleWorkspaceSymbols(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := int(req.GetFloat("limit", 50))

	matched := s.features.WorkspaceSymbols(query, limit)
	out := make([]symbolSummary, 0, len(matched))
	for _, m := range matched {
		out = append(out, summarize(m))
	}
	return jsonResult(out)
}

func (s *Server) handleDocumentSymbols(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	syms := s.features.DocumentSymbols(uri)
	if syms == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no symbol table for %s", uri)), nil
	}
	out := make([]symbolSummary, 0, len(syms))
	for _, m := range syms {
		out = append(out, summarize(m))
	}
	return jsonResult(out)
}

func (s *Server) handleHover(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, pos, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := s.features.Hover(uri, pos)
	if text == "" {
		return mcp.NewToolResultText("no declaration under position"), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDefinition(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, pos, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.features.Definition(uri, pos))
}

func (s *Server) handleReferences(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, pos, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.features.ReferencesOf(uri, pos))
}

func (s *Server) handleCompletion(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, pos, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prefix := req.GetString("prefix", "")
	return jsonResult(s.features.Completion(uri, pos, prefix))
}

func (s *Server) handleSignatureHelp(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, pos, err := positionArgs(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	help := s.features.SignatureHelp(uri, pos)
	if help == nil {
		return mcp.NewToolResultText("no call under position"), nil
	}
	return jsonResult(help)
}

func (s *Server) handleOpenDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uri, err := req.RequireString("uri")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.workspace.OpenDocument(uri, []byte(text), 1); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("ok"), nil
}

func (s *Server) handleIndexStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := map[string]any{
		"root":      s.workspace.Root(),
		"documents": len(s.workspace.Symbols().URIs()),
		"keys":      s.workspace.Symbols().Count(),
	}
	return jsonResult(status)
}
