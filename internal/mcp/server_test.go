package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	source := `%!section Routing
%!predicate route/2 selected transport edge
route(X,Y) :- edge(X,Y), chosen(X). % pick an edge
cost(C) :- route(X,Y), weight(X,Y,C).
:- route(X,X).
edge(1,2).
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "routing.lp"), []byte(source), 0o644))

	srv, err := NewServer(context.Background(), dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
	result, err := handler(context.Background(), request)
	require.NoError(t, err, "should not return system error")
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return textContent.Text
}

func TestStatementsHandler_ListsAll(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createStatementsHandler(srv)

	result := callTool(t, handler, map[string]interface{}{})
	assert.False(t, result.IsError)

	var response StatementsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, 4, response.Total)
}

func TestStatementsHandler_KindFilter(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createStatementsHandler(srv)

	result := callTool(t, handler, map[string]interface{}{"kind": "Constraint"})
	var response StatementsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	require.Equal(t, 1, response.Total)
	assert.Equal(t, "Constraint#0", response.Statements[0].Identifier)
	assert.Equal(t, []string{"route/2"}, response.Statements[0].Dependencies)
}

func TestStatementsHandler_UnknownKind(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createStatementsHandler(srv)

	result := callTool(t, handler, map[string]interface{}{"kind": "Bogus"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "unknown statement kind")
}

func TestSearchHandler_FindsByProse(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createSearchHandler(srv)

	result := callTool(t, handler, map[string]interface{}{"query": "transport"})
	assert.False(t, result.IsError)

	var response SearchResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	require.NotZero(t, response.Total)
	assert.Equal(t, "route/2", response.Results[0].Identifier)
}

func TestSearchHandler_MissingQuery(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createSearchHandler(srv)

	result := callTool(t, handler, map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "query parameter is required")
}

func TestSymbolHandler_Occurrences(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createSymbolHandler(srv)

	result := callTool(t, handler, map[string]interface{}{"signature": "route/2"})
	assert.False(t, result.IsError)

	var response SymbolResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, "route/2", response.Signature)
	assert.Equal(t, "selected transport edge", response.Description)

	var defines, dependencies int
	for _, o := range response.Occurrences {
		switch o.Role {
		case "define":
			defines++
		case "dependency":
			dependencies++
		}
	}
	assert.Equal(t, 1, defines)
	assert.Equal(t, 2, dependencies)

	assert.Contains(t, response.Dependencies, "edge/2")
	assert.Contains(t, response.Dependents, "cost/1")
}

func TestSymbolHandler_NotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	handler := createSymbolHandler(srv)

	result := callTool(t, handler, map[string]interface{}{"signature": "phantom/3"})
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}

func TestNewServer_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := NewServer(context.Background(), filepath.Join(t.TempDir(), "absent"), nil)
	require.Error(t, err)
}
