package tools

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/crunchtools/mcp-workboard/internal/audit"
	"github.com/crunchtools/mcp-workboard/internal/workboard"
)

// priorYearsQuery builds the common key-result listing query.
func priorYearsQuery(includePriorYears bool) url.Values {
	if !includePriorYears {
		return nil
	}
	return url.Values{"include_prior_years": {"true"}}
}

// GetMyKeyResultsTool handles workboard_get_my_key_results: list the
// caller's key results to find metric IDs before a check-in.
type GetMyKeyResultsTool struct {
	api apiClient
}

// NewGetMyKeyResultsTool creates the tool with its dependencies.
func NewGetMyKeyResultsTool(api apiClient) *GetMyKeyResultsTool {
	return &GetMyKeyResultsTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetMyKeyResultsTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_my_key_results",
		mcp.WithDescription(
			"List all key results (metrics) the current user owns or has access to. "+
				"Use this to find metric IDs and see current progress before updating "+
				"with workboard_update_key_result. By default only current-year key "+
				"results are shown.",
		),
		mcp.WithBoolean("include_prior_years",
			mcp.Description("If true, include key results from prior years. Defaults to false."),
		),
	)
}

// Handle processes the tool call.
func (t *GetMyKeyResultsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "include_prior_years"); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, "/metric", priorYearsQuery(req.GetBool("include_prior_years", false)))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"key_results": resp}), nil
}

// GetUserKeyResultsTool handles workboard_get_user_key_results: list key
// results for a specific user, e.g. a direct report before a 1:1.
type GetUserKeyResultsTool struct {
	api apiClient
}

// NewGetUserKeyResultsTool creates the tool with its dependencies.
func NewGetUserKeyResultsTool(api apiClient) *GetUserKeyResultsTool {
	return &GetUserKeyResultsTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetUserKeyResultsTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_user_key_results",
		mcp.WithDescription(
			"List key results (metrics) for a specific WorkBoard user by their user "+
				"ID. Use workboard_get_teams and workboard_get_team_members to resolve "+
				"a person's name to their user ID. By default only current-year key "+
				"results are shown.",
		),
		mcp.WithNumber("user_id", mcp.Required(),
			mcp.Description("User ID (positive integer). Get this from workboard_get_team_members."),
		),
		mcp.WithBoolean("include_prior_years",
			mcp.Description("If true, include key results from prior years. Defaults to false."),
		),
	)
}

// Handle processes the tool call.
func (t *GetUserKeyResultsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "user_id", "include_prior_years"); err != nil {
		return toolError(err), nil
	}

	userID, err := idArg(req, "user_id")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateUserID(userID); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, fmt.Sprintf("/user/%d/metric", userID),
		priorYearsQuery(req.GetBool("include_prior_years", false)))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"key_results": resp}), nil
}

// UpdateKeyResultTool handles workboard_update_key_result, the primary
// check-in tool and the one write that gets the read-before-write
// safeguard.
//
// Sequence: validate, best-effort pre-read of the current value, write,
// compare. A decrease is never blocked, since legitimate corrections
// lower values, but it is returned to the caller as a warning and recorded in
// the audit trail at elevated severity, so it is observable and
// reversible. The pre-read and the write are not atomic against the
// remote system; concurrent writers can race, and the remote system stays
// the authority on final state.
type UpdateKeyResultTool struct {
	api   apiClient
	audit auditSink
}

// NewUpdateKeyResultTool creates the tool with its dependencies.
func NewUpdateKeyResultTool(api apiClient, audit auditSink) *UpdateKeyResultTool {
	return &UpdateKeyResultTool{api: api, audit: audit}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateKeyResultTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_update_key_result",
		mcp.WithDescription(
			"Update progress on a key result (metric). This is the primary tool for "+
				"weekly OKR check-ins. Use workboard_get_my_key_results to find metric "+
				"IDs first.",
		),
		mcp.WithNumber("metric_id", mcp.Required(),
			mcp.Description("Metric ID (positive integer). Get this from workboard_get_my_key_results."),
		),
		mcp.WithString("value", mcp.Required(),
			mcp.Description(`The new progress value (e.g. "75" for 75%).`),
		),
		mcp.WithString("comment",
			mcp.Description("Optional check-in comment describing what changed."),
		),
	)
}

// Handle processes the tool call.
func (t *UpdateKeyResultTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "metric_id", "value", "comment"); err != nil {
		return toolError(err), nil
	}

	metricID, err := idArg(req, "metric_id")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateMetricID(metricID); err != nil {
		return toolError(err), nil
	}

	input := workboard.UpdateKeyResultInput{
		Value:   req.GetString("value", ""),
		Comment: req.GetString("comment", ""),
	}
	if err := input.Validate(); err != nil {
		return toolError(err), nil
	}

	// Best-effort pre-read. A failure here must not block the check-in;
	// it only disables decrease detection for this call.
	previous, havePrevious := 0.0, false
	if current, err := t.api.Get(ctx, fmt.Sprintf("/metric/%d", metricID), nil); err == nil {
		previous, havePrevious = currentMetricValue(current)
	}

	resp, err := t.api.Put(ctx, fmt.Sprintf("/metric/%d", metricID), input.Body())
	if err != nil {
		return toolError(err), nil
	}

	newValue := input.NumericValue()
	outcome := audit.OutcomeNormal
	warning := ""
	previousText := ""
	if havePrevious {
		previousText = strconv.FormatFloat(previous, 'f', -1, 64)
		if newValue < previous {
			outcome = audit.OutcomeDecrease
			warning = fmt.Sprintf(
				"Progress decreased from %s to %s. If this was unintentional, check in again with the previous value.",
				previousText, input.Value)
		}
	}

	t.audit.Emit(ctx, audit.NewRecord("update_key_result",
		metricID, previousText, input.Value, outcome))

	result := map[string]any{"key_result": resp}
	if warning != "" {
		result["warning"] = warning
	}
	return jsonResult(result), nil
}

// currentMetricValue extracts the current progress value from a metric
// detail payload, tolerating a data wrapper and either a metric_progress
// or metric_current key. An unrecognized shape just disables decrease
// detection.
func currentMetricValue(resp any) (float64, bool) {
	m, ok := resp.(map[string]any)
	if !ok {
		return 0, false
	}
	if inner, ok := m["data"].(map[string]any); ok {
		if metric, ok := inner["metric"].(map[string]any); ok {
			m = metric
		} else {
			m = inner
		}
	}
	if v, ok := asFloat(m["metric_progress"]); ok {
		return v, true
	}
	if v, ok := asFloat(m["metric_current"]); ok {
		return v, true
	}
	return 0, false
}
