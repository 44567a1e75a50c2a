// Package mcp exposes the dice engine over the Model Context Protocol
// so agents can roll expressions and audit the random source.
package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/louisbranch/dice-engine/internal/engine"
)

const (
	serverName    = "Dice Engine MCP"
	serverVersion = "0.1.0"
)

// Server wraps an MCP server bound to a dice engine.
type Server struct {
	server *mcp.Server
}

// NewServer creates an MCP server exposing the engine's tools.
func NewServer(eng *engine.Engine) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}

	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	mcp.AddTool(server, RollTool(), RollHandler(eng))
	mcp.AddTool(server, RollBatchTool(), RollBatchHandler(eng))
	mcp.AddTool(server, ValidateFairnessTool(), ValidateFairnessHandler(eng))

	return &Server{server: server}, nil
}

// Serve runs the server over stdio until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("server is not configured")
	}
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
