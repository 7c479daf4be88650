// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it loads configuration, builds the shared
// transport client and audit sinks, and injects them into the tool
// handlers. No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/crunchtools/mcp-workboard/internal/audit"
	"github.com/crunchtools/mcp-workboard/internal/config"
	"github.com/crunchtools/mcp-workboard/internal/tools"
	"github.com/crunchtools/mcp-workboard/internal/workboard"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all 13 WorkBoard tools
// registered. This is the single place where all dependencies are
// resolved.
//
// The returned cleanup function closes the audit store and flushes the
// logger; it must be called on shutdown (typically via defer) and is
// always non-nil and safe to call.
func New() (*server.MCPServer, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, noop, err
	}

	log, err := newLogger()
	if err != nil {
		return nil, noop, fmt.Errorf("creating logger: %w", err)
	}

	// --- Create shared dependencies ---

	client := workboard.NewClient(cfg, log)

	var store *audit.Store
	if cfg.AuditDBPath != "" {
		store, err = audit.NewStore(cfg.AuditDBPath)
		if err != nil {
			return nil, noop, fmt.Errorf("opening audit trail: %w", err)
		}
	}
	auditLog := audit.NewLogger(log, store)

	cleanup := func() {
		if store != nil {
			_ = store.Close()
		}
		_ = log.Sync()
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"mcp-workboard",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register user tools ---

	getUser := tools.NewGetUserTool(client)
	s.AddTool(getUser.Definition(), getUser.Handle)

	listUsers := tools.NewListUsersTool(client)
	s.AddTool(listUsers.Definition(), listUsers.Handle)

	createUser := tools.NewCreateUserTool(client, auditLog)
	s.AddTool(createUser.Definition(), createUser.Handle)

	updateUser := tools.NewUpdateUserTool(client, auditLog)
	s.AddTool(updateUser.Definition(), updateUser.Handle)

	// --- Register team tools ---

	getTeams := tools.NewGetTeamsTool(client)
	s.AddTool(getTeams.Definition(), getTeams.Handle)

	getTeamMembers := tools.NewGetTeamMembersTool(client)
	s.AddTool(getTeamMembers.Definition(), getTeamMembers.Handle)

	// --- Register objective tools ---

	getObjectives := tools.NewGetObjectivesTool(client)
	s.AddTool(getObjectives.Definition(), getObjectives.Handle)

	getObjectiveDetails := tools.NewGetObjectiveDetailsTool(client)
	s.AddTool(getObjectiveDetails.Definition(), getObjectiveDetails.Handle)

	getMyObjectives := tools.NewGetMyObjectivesTool(client)
	s.AddTool(getMyObjectives.Definition(), getMyObjectives.Handle)

	createObjective := tools.NewCreateObjectiveTool(client, auditLog)
	s.AddTool(createObjective.Definition(), createObjective.Handle)

	// --- Register key result tools ---

	getMyKeyResults := tools.NewGetMyKeyResultsTool(client)
	s.AddTool(getMyKeyResults.Definition(), getMyKeyResults.Handle)

	getUserKeyResults := tools.NewGetUserKeyResultsTool(client)
	s.AddTool(getUserKeyResults.Definition(), getUserKeyResults.Handle)

	updateKeyResult := tools.NewUpdateKeyResultTool(client, auditLog)
	s.AddTool(updateKeyResult.Definition(), updateKeyResult.Handle)

	return s, cleanup, nil
}

// newLogger builds the process logger. Everything goes to stderr: stdout
// belongs to the MCP stdio transport.
func newLogger() (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func noop() {}

func serverInstructions() string {
	return "Secure MCP server for the WorkBoard OKR and strategy execution platform. " +
		"WorkBoard tracks Objectives (goals) and Key Results (metrics). " +
		"When users ask about 'my objectives' or 'my OKRs', use workboard_get_my_objectives " +
		"with no arguments; it auto-discovers objectives from the user's key results. " +
		"To update OKR progress, first use workboard_get_my_key_results to find metric IDs, " +
		"then use workboard_update_key_result to check in. " +
		"To identify the current user, call workboard_get_user with no arguments.\n\n" +
		"DISPLAY FORMAT: When showing objectives and key results, always use a tree structure. " +
		"Show each objective as a top-level item with its progress, then indent its key results " +
		"beneath it. Example:\n" +
		"- Objective Name (progress%)\n" +
		"  - Key Result 1: current of target\n" +
		"  - Key Result 2: current of target\n" +
		"For key result lists without objectives, use a flat bulleted list with name, progress, " +
		"and target date."
}
