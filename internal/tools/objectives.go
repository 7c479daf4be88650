package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/crunchtools/mcp-workboard/internal/audit"
	"github.com/crunchtools/mcp-workboard/internal/workboard"
)

// GetObjectivesTool handles workboard_get_objectives: the raw
// associated-objectives listing for a user. The remote endpoint caps the
// list at 15 results and includes objectives the user merely contributes
// to, so the my-objectives tool is usually the better choice.
type GetObjectivesTool struct {
	api apiClient
}

// NewGetObjectivesTool creates the tool with its dependencies.
func NewGetObjectivesTool(api apiClient) *GetObjectivesTool {
	return &GetObjectivesTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetObjectivesTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_objectives",
		mcp.WithDescription(
			"Get objectives associated with a WorkBoard user by their user ID. "+
				"WARNING: the endpoint caps results at 15 and returns objectives the "+
				"user is associated with, not necessarily ones they own. Prefer "+
				"workboard_get_my_objectives when the user asks for their own objectives.",
		),
		mcp.WithNumber("user_id", mcp.Required(),
			mcp.Description("User ID (positive integer). Get this from workboard_get_user."),
		),
	)
}

// Handle processes the tool call.
func (t *GetObjectivesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "user_id"); err != nil {
		return toolError(err), nil
	}

	userID, err := idArg(req, "user_id")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateUserID(userID); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, fmt.Sprintf("/user/%d/goal", userID), nil)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"objectives": resp}), nil
}

// GetObjectiveDetailsTool handles workboard_get_objective_details: one
// objective with all its key results.
type GetObjectiveDetailsTool struct {
	api apiClient
}

// NewGetObjectiveDetailsTool creates the tool with its dependencies.
func NewGetObjectiveDetailsTool(api apiClient) *GetObjectiveDetailsTool {
	return &GetObjectiveDetailsTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetObjectiveDetailsTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_objective_details",
		mcp.WithDescription(
			"Get full details for a single objective including all its key results: "+
				"name, progress, status, dates, and each metric's target and progress.",
		),
		mcp.WithNumber("user_id", mcp.Required(),
			mcp.Description("User ID (positive integer). Get this from workboard_get_user."),
		),
		mcp.WithNumber("objective_id", mcp.Required(),
			mcp.Description("Objective ID (positive integer)."),
		),
	)
}

// Handle processes the tool call.
func (t *GetObjectiveDetailsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "user_id", "objective_id"); err != nil {
		return toolError(err), nil
	}

	userID, err := idArg(req, "user_id")
	if err != nil {
		return toolError(err), nil
	}
	objectiveID, err := idArg(req, "objective_id")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateUserID(userID); err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateObjectiveID(objectiveID); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, fmt.Sprintf("/user/%d/goal/%d", userID, objectiveID), nil)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"objective": resp}), nil
}

// GetMyObjectivesTool handles workboard_get_my_objectives: a sequential
// discovery chain with no side effects. It resolves the caller's user ID,
// discovers owned objectives from the caller's key results, then fetches
// each objective's details. A failure at any step surfaces immediately,
// with no partial results.
type GetMyObjectivesTool struct {
	api apiClient
}

// NewGetMyObjectivesTool creates the tool with its dependencies.
func NewGetMyObjectivesTool(api apiClient) *GetMyObjectivesTool {
	return &GetMyObjectivesTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetMyObjectivesTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_my_objectives",
		mcp.WithDescription(
			"Get the current authenticated user's objectives with key results. "+
				"This is the RECOMMENDED tool when users ask about 'my objectives' or "+
				"'my OKRs'. It determines the current user and discovers their "+
				"objectives from their key results, no IDs needed.",
		),
		mcp.WithArray("objective_ids",
			mcp.Description("Optional list of specific objective IDs to fetch. "+
				"If not provided, objectives are discovered from the user's key results."),
			mcp.Items(map[string]any{"type": "number"}),
		),
	)
}

// Handle processes the tool call.
func (t *GetMyObjectivesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "objective_ids"); err != nil {
		return toolError(err), nil
	}

	objectiveIDs, err := idListArg(req, "objective_ids")
	if err != nil {
		return toolError(err), nil
	}
	for _, id := range objectiveIDs {
		if _, err := workboard.ValidateObjectiveID(id); err != nil {
			return toolError(err), nil
		}
	}

	// Step 1: resolve the caller's own identifier.
	userResp, err := t.api.Get(ctx, "/user", nil)
	if err != nil {
		return toolError(err), nil
	}
	userID := currentUserID(userResp)
	if userID == 0 {
		return mcp.NewToolResultError("could not determine current user ID"), nil
	}

	// Step 2: without explicit IDs, discover owned objectives from the
	// caller's key results.
	if len(objectiveIDs) == 0 {
		metricsResp, err := t.api.Get(ctx, "/metric", nil)
		if err != nil {
			return toolError(err), nil
		}
		objectiveIDs = discoverObjectiveIDs(metricsResp)
	}

	// Step 3: fetch each objective's details, in order, fail-fast.
	objectives := make([]any, 0, len(objectiveIDs))
	for _, id := range objectiveIDs {
		detail, err := t.api.Get(ctx, fmt.Sprintf("/user/%d/goal/%d", userID, id), nil)
		if err != nil {
			return toolError(err), nil
		}
		objectives = append(objectives, detail)
	}

	return jsonResult(map[string]any{
		"user_id":    userID,
		"objectives": objectives,
	}), nil
}

// currentUserID extracts the authenticated user's ID from the /user
// response, tolerating a data wrapper.
func currentUserID(resp any) int64 {
	m, ok := resp.(map[string]any)
	if !ok {
		return 0
	}
	if id := asInt(m["user_id"]); id > 0 {
		return id
	}
	return asInt(dig(m, "data", "user_id"))
}

// discoverObjectiveIDs collects the distinct goal IDs referenced by the
// caller's key results, preserving first-seen order.
func discoverObjectiveIDs(resp any) []int64 {
	var ids []int64
	seen := map[int64]bool{}
	for _, raw := range metricList(resp) {
		metric, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id := asInt(metric["goal_id"])
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// metricList digs the key result list out of a /metric response.
func metricList(resp any) []any {
	switch v := resp.(type) {
	case []any:
		return v
	case map[string]any:
		for _, candidate := range []any{v["metrics"], v["data"], dig(v, "data", "metrics")} {
			if list, ok := candidate.([]any); ok {
				return list
			}
		}
	}
	return nil
}

// CreateObjectiveTool handles workboard_create_objective.
type CreateObjectiveTool struct {
	api   apiClient
	audit auditSink
}

// NewCreateObjectiveTool creates the tool with its dependencies.
func NewCreateObjectiveTool(api apiClient, audit auditSink) *CreateObjectiveTool {
	return &CreateObjectiveTool{api: api, audit: audit}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateObjectiveTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_create_objective",
		mcp.WithDescription(
			"Create a new objective with optional key results (requires Data-Admin "+
				"token). Provide the goal name, owner, dates, and optionally key "+
				"results with targets.",
		),
		mcp.WithString("name", mcp.Required(),
			mcp.Description("Objective name (e.g. 'Increase customer retention')"),
		),
		mcp.WithString("owner", mcp.Required(),
			mcp.Description("Owner's email address or user ID"),
		),
		mcp.WithString("start_date", mcp.Required(),
			mcp.Description("Start date in YYYY-MM-DD format"),
		),
		mcp.WithString("target_date", mcp.Required(),
			mcp.Description("Target completion date in YYYY-MM-DD format"),
		),
		mcp.WithString("narrative",
			mcp.Description("Optional description/narrative for the objective"),
		),
		mcp.WithString("goal_type",
			mcp.Description(`"1" for Team objective (default), "2" for Personal objective`),
			mcp.Enum("1", "2"),
		),
		mcp.WithString("permission",
			mcp.Description(`Visibility setting (default "internal,team")`),
		),
		mcp.WithArray("key_results",
			mcp.Description("Optional list of key result objects, each with keys "+
				"metric_name, metric_start, metric_target, metric_type"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	)
}

// Handle processes the tool call.
func (t *CreateObjectiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "name", "owner", "start_date", "target_date",
		"narrative", "goal_type", "permission", "key_results"); err != nil {
		return toolError(err), nil
	}

	keyResults, err := keyResultSpecsArg(req, "key_results")
	if err != nil {
		return toolError(err), nil
	}

	input := workboard.CreateObjectiveInput{
		Name:       req.GetString("name", ""),
		Owner:      req.GetString("owner", ""),
		StartDate:  req.GetString("start_date", ""),
		TargetDate: req.GetString("target_date", ""),
		Narrative:  req.GetString("narrative", ""),
		GoalType:   req.GetString("goal_type", "1"),
		Permission: req.GetString("permission", "internal,team"),
		KeyResults: keyResults,
	}
	if err := input.Validate(); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Post(ctx, "/goal", input.Body())
	if err != nil {
		return toolError(err), nil
	}

	t.audit.Emit(ctx, audit.NewRecord("create_objective",
		createdID(resp, "goal_id"), "", input.Name, audit.OutcomeNormal))

	return jsonResult(map[string]any{"objective": resp}), nil
}
