// Package mcp exposes lplens program analysis over the Model Context
// Protocol: statement listings, keyword search and predicate lookups
// served on stdio.
package mcp

import "github.com/lplens/lplens/internal/search"

// StatementInfo is the wire form of one enriched statement.
type StatementInfo struct {
	Identifier   string   `json:"identifier"`
	Kind         string   `json:"kind"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Section      string   `json:"section,omitempty"`
	Prefix       string   `json:"prefix,omitempty"`
	Defines      []string `json:"defines,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Comments     []string `json:"comments,omitempty"`
}

// StatementsResponse answers the lplens_statements tool.
type StatementsResponse struct {
	Statements []StatementInfo `json:"statements"`
	Total      int             `json:"total"`
}

// SearchResponse answers the lplens_search tool.
type SearchResponse struct {
	Results []*search.Result `json:"results"`
	Total   int              `json:"total"`
}

// SymbolOccurrenceInfo is one occurrence of a predicate.
type SymbolOccurrenceInfo struct {
	Role       string `json:"role"`
	Statement  string `json:"statement"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
}

// SymbolResponse answers the lplens_symbol tool.
type SymbolResponse struct {
	Signature    string                 `json:"signature"`
	Description  string                 `json:"description,omitempty"`
	Occurrences  []SymbolOccurrenceInfo `json:"occurrences"`
	Dependencies []string               `json:"dependencies,omitempty"`
	Dependents   []string               `json:"dependents,omitempty"`
}
