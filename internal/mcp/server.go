// Package mcp exposes the assembler and executor as a Model Context
// Protocol server so coding agents can compile and run puzzle solutions
// as structured tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/cogvm/cog"
	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/internal/presentation/graph"
	"github.com/cogvm/cog/pkg/ide"
	"github.com/cogvm/cog/pkg/lang"
	"github.com/cogvm/cog/pkg/protocol"
)

// CompileResponse reports the outcome of assembling source without executing it.
type CompileResponse struct {
	OK           bool                 `json:"ok" jsonschema_description:"Whether the source assembled cleanly"`
	Instructions []lang.SourceElement `json:"instructions,omitempty" jsonschema_description:"Assembled instruction listing"`
	Diagnostics  []lang.Diagnostic    `json:"diagnostics,omitempty" jsonschema_description:"Diagnostics when assembly fails"`
}

// RunResponse reports the outcome of assembling and executing a solution to completion.
type RunResponse struct {
	OK          bool                      `json:"ok" jsonschema_description:"Whether the source assembled cleanly"`
	Diagnostics []lang.Diagnostic         `json:"diagnostics,omitempty" jsonschema_description:"Diagnostics when assembly fails"`
	Successful  bool                      `json:"successful" jsonschema_description:"Whether the run solved the program"`
	State       *protocol.MachineSnapshot `json:"state,omitempty" jsonschema_description:"Final machine state after the run"`
}

// GraphResponse carries the control-flow chart of an assembled solution.
type GraphResponse struct {
	OK          bool              `json:"ok" jsonschema_description:"Whether the source assembled cleanly"`
	Diagnostics []lang.Diagnostic `json:"diagnostics,omitempty" jsonschema_description:"Diagnostics when assembly fails"`
	Mermaid     string            `json:"mermaid,omitempty" jsonschema_description:"Mermaid flowchart of the program's control flow"`
}

// Server wraps a puzzle catalog and exposes it as an MCP Server.
type Server struct {
	source    catalog.Source
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance backed by the given catalog.
func NewServer(source catalog.Source) *Server {
	s := &Server{
		source:    source,
		mcpServer: server.NewMCPServer("cog-mcp", strings.TrimSpace(cog.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	// TOOL: compile_program
	compileTool := mcp.NewTool("compile_program",
		mcp.WithDescription("Assemble source for a hardware and report the listing or the diagnostics, without executing."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Assembly source code")),
		mcp.WithString("hardware", mcp.Description("Catalog hardware slug (defaults to a single-register board)")),
		mcp.WithOutputSchema[CompileResponse](),
	)
	s.mcpServer.AddTool(compileTool, mcp.NewStructuredToolHandler(s.handleCompile))

	// TOOL: run_program
	runTool := mcp.NewTool("run_program",
		mcp.WithDescription("Assemble source against a catalog program and execute it to completion."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Assembly source code")),
		mcp.WithString("hardware", mcp.Required(), mcp.Description("Catalog hardware slug")),
		mcp.WithString("program", mcp.Required(), mcp.Description("Program slug on that hardware")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRun))

	// TOOL: graph_program
	graphTool := mcp.NewTool("graph_program",
		mcp.WithDescription("Assemble source and render its control flow as a Mermaid flowchart."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Assembly source code")),
		mcp.WithString("hardware", mcp.Description("Catalog hardware slug (defaults to a single-register board)")),
		mcp.WithOutputSchema[GraphResponse](),
	)
	s.mcpServer.AddTool(graphTool, mcp.NewStructuredToolHandler(s.handleGraph))

	// TOOL: list_puzzles
	s.mcpServer.AddTool(mcp.NewTool("list_puzzles",
		mcp.WithDescription("List the puzzle boards and the programs each one carries."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		boards, err := s.source.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(boards)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

// Tool arguments decode out of the loosely-typed args map via
// mapstructure tags.
type compileArgs struct {
	Source   string `mapstructure:"source"`
	Hardware string `mapstructure:"hardware"`
}

type runArgs struct {
	Source   string `mapstructure:"source"`
	Hardware string `mapstructure:"hardware"`
	Program  string `mapstructure:"program"`
}

// resolveHardware maps an optional catalog slug to its spec. No slug
// means the default single-register board.
func (s *Server) resolveHardware(ctx context.Context, slug string) (lang.HardwareSpec, error) {
	if slug == "" {
		return lang.DefaultHardwareSpec(), nil
	}
	board, err := s.source.Hardware(ctx, slug)
	if err != nil {
		return lang.HardwareSpec{}, fmt.Errorf("resolve hardware: %w", err)
	}
	return board.Spec, nil
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (CompileResponse, error) {
	var in compileArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return CompileResponse{}, fmt.Errorf("failed to decode arguments: %w", err)
	}

	hw, err := s.resolveHardware(ctx, in.Hardware)
	if err != nil {
		return CompileResponse{}, err
	}

	program, err := lang.Compile(in.Source, hw)
	if err != nil {
		var ce *lang.CompileError
		if errors.As(err, &ce) {
			return CompileResponse{Diagnostics: ce.Diagnostics}, nil
		}
		return CompileResponse{}, fmt.Errorf("compile failed: %w", err)
	}

	return CompileResponse{OK: true, Instructions: program.Instructions()}, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (GraphResponse, error) {
	var in compileArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return GraphResponse{}, fmt.Errorf("failed to decode arguments: %w", err)
	}

	hw, err := s.resolveHardware(ctx, in.Hardware)
	if err != nil {
		return GraphResponse{}, err
	}

	program, err := lang.Compile(in.Source, hw)
	if err != nil {
		var ce *lang.CompileError
		if errors.As(err, &ce) {
			return GraphResponse{Diagnostics: ce.Diagnostics}, nil
		}
		return GraphResponse{}, fmt.Errorf("compile failed: %w", err)
	}

	return GraphResponse{OK: true, Mermaid: graph.Flowchart(program)}, nil
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	var in runArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return RunResponse{}, fmt.Errorf("failed to decode arguments: %w", err)
	}

	board, prog, err := catalog.FindProgram(ctx, s.source, in.Hardware, in.Program)
	if err != nil {
		return RunResponse{}, fmt.Errorf("resolve program: %w", err)
	}

	compiled, err := lang.Compile(in.Source, board.Spec)
	if err != nil {
		var ce *lang.CompileError
		if errors.As(err, &ce) {
			return RunResponse{Diagnostics: ce.Diagnostics}, nil
		}
		return RunResponse{}, fmt.Errorf("compile failed: %w", err)
	}

	machine := compiled.NewMachine(prog.ProgramSpec())
	machine.ExecuteAll()

	snap := ide.Snapshot(machine)
	return RunResponse{
		OK:         true,
		Successful: machine.Successful(),
		State:      &snap,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: cog://puzzles
	s.mcpServer.AddResource(mcp.NewResource("cog://puzzles", "Puzzle Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		boards, err := s.source.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list puzzles: %w", err)
		}
		jsonBytes, _ := json.Marshal(boards)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "cog://puzzles",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
