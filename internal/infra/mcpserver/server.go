// Package mcpserver exposes receiver commands as MCP tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"avr-control/internal/domain"
)

// Executor runs a receiver command.
type Executor interface {
	Execute(ctx context.Context, cmd domain.Command) error
}

type Server struct {
	mcp      *server.MCPServer
	executor Executor
	handlers map[string]server.ToolHandlerFunc
	logger   *slog.Logger
}

func NewServer(executor Executor, version string, logger *slog.Logger) *Server {
	s := &Server{
		mcp:      server.NewMCPServer("avr-control", version, server.WithToolCapabilities(false)),
		executor: executor,
		handlers: make(map[string]server.ToolHandlerFunc),
		logger:   logger,
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.add(mcp.NewTool("set_volume",
		mcp.WithDescription("Set the receiver volume on a 1-10 scale"),
		mcp.WithNumber("level",
			mcp.Required(),
			mcp.Description("Volume level between 1 and 10"),
		),
	), s.handleSetVolume)

	s.add(mcp.NewTool("change_input",
		mcp.WithDescription("Switch the receiver input source"),
		mcp.WithNumber("input",
			mcp.Required(),
			mcp.Description("Input number between 1 and 22 (1 BD, 2 GAME, 3 HDMI 1, 7 TV/SAT, 15 CD, 17 TUNER)"),
		),
	), s.handleChangeInput)

	fixed := []struct {
		name, description string
		cmd               domain.Command
	}{
		{"mute", "Mute the receiver", domain.Mute()},
		{"unmute", "Unmute the receiver", domain.Unmute()},
		{"power_on", "Turn the receiver on", domain.PowerOn()},
		{"power_off", "Turn the receiver off", domain.PowerOff()},
		{"volume_up", "Raise the volume by one step", domain.VolumeUp()},
		{"volume_down", "Lower the volume by one step", domain.VolumeDown()},
	}
	for _, f := range fixed {
		cmd := f.cmd
		s.add(mcp.NewTool(f.name, mcp.WithDescription(f.description)),
			func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return s.execute(ctx, cmd), nil
			})
	}
}

func (s *Server) add(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.handlers[tool.Name] = handler
	s.mcp.AddTool(tool, handler)
}

// CallTool invokes a registered tool directly, bypassing the transport.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return handler(ctx, req)
}

// Run serves the tools on stdin/stdout until the client disconnects.
func (s *Server) Run() error {
	s.logger.Info("started stdio MCP server", "tools", len(s.handlers))
	defer s.logger.Info("shut down stdio MCP server")
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleSetVolume(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	level, err := wholeNumber(req, "level")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd, err := domain.SetVolume(level)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.execute(ctx, cmd), nil
}

func (s *Server) handleChangeInput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := wholeNumber(req, "input")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cmd, err := domain.ChangeInput(input)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.execute(ctx, cmd), nil
}

// wholeNumber reads a numeric argument, rejecting fractions. JSON numbers
// arrive as float64.
func wholeNumber(req mcp.CallToolRequest, name string) (int, error) {
	v := req.GetFloat(name, 0)
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be a whole number, got %v", name, v)
	}
	return int(v), nil
}

func (s *Server) execute(ctx context.Context, cmd domain.Command) *mcp.CallToolResult {
	s.logger.Info("tool call", "command", cmd.String())
	if err := s.executor.Execute(ctx, cmd); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", cmd, err))
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s confirmed by receiver", cmd))
}
