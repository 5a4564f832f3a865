package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/phpindex/pkg/workspace"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	ws := workspace.New(workspace.Config{}, nil)
	t.Cleanup(ws.Shutdown)

	require.NoError(t, ws.OpenDocument("file:///t.php", []byte(`<?php
class Greeter {
    public function greet(string $name): string { return $name; }
}
$g = new Greeter();
$g->greet("hi");
`), 1))
	return NewServer(ws, nil)
}

func callReq(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestHandleWorkspaceSymbols(t *testing.T) {
	s := testServer(t)

	res, err := s.handleWorkspaceSymbols(context.Background(), callReq("workspace_symbols", map[string]any{
		"query": "greet",
	}))
	require.NoError(t, err)

	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &out))
	require.NotEmpty(t, out)

	names := make([]string, 0, len(out))
	for _, o := range out {
		names = append(names, o["name"].(string))
	}
	assert.Contains(t, names, "Greeter")
}

func TestHandleWorkspaceSymbols_MissingQuery(t *testing.T) {
	s := testServer(t)
	res, err := s.handleWorkspaceSymbols(context.Background(), callReq("workspace_symbols", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleDocumentSymbols(t *testing.T) {
	s := testServer(t)

	res, err := s.handleDocumentSymbols(context.Background(), callReq("document_symbols", map[string]any{
		"uri": "file:///t.php",
	}))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), "Greeter")

	res, err = s.handleDocumentSymbols(context.Background(), callReq("document_symbols", map[string]any{
		"uri": "file:///missing.php",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestHandleHoverAndDefinition(t *testing.T) {
	s := testServer(t)

	// Position of "greet" on the call line (line 5, after "$g->").
	args := map[string]any{"uri": "file:///t.php", "line": float64(5), "character": float64(5)}

	res, err := s.handleHover(context.Background(), callReq("hover", args))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), "greet")

	res, err = s.handleDefinition(context.Background(), callReq("definition", args))
	require.NoError(t, err)
	var locs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &locs))
	require.NotEmpty(t, locs)
	assert.Equal(t, "file:///t.php", locs[0]["uri"])
}

func TestHandleSignatureHelp(t *testing.T) {
	s := testServer(t)

	res, err := s.handleSignatureHelp(context.Background(), callReq("signature_help", map[string]any{
		"uri": "file:///t.php", "line": float64(5), "character": float64(10),
	}))
	require.NoError(t, err)
	assert.Contains(t, textOf(t, res), "greet($name)")
}

func TestHandleOpenDocumentAndStatus(t *testing.T) {
	s := testServer(t)

	res, err := s.handleOpenDocument(context.Background(), callReq("open_document", map[string]any{
		"uri":  "file:///new.php",
		"text": "<?php function fresh() {}",
	}))
	require.NoError(t, err)
	assert.Equal(t, "ok", textOf(t, res))

	res, err = s.handleIndexStatus(context.Background(), callReq("index_status", nil))
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &status))
	assert.Equal(t, float64(2), status["documents"])
}
