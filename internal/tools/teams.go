package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/crunchtools/mcp-workboard/internal/workboard"
)

// GetTeamsTool handles workboard_get_teams. The raw payload shape varies
// between deployments (array, or an object nested under data), so the
// result is reshaped into a stable form.
type GetTeamsTool struct {
	api apiClient
}

// NewGetTeamsTool creates the tool with its dependencies.
func NewGetTeamsTool(api apiClient) *GetTeamsTool {
	return &GetTeamsTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTeamsTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_teams",
		mcp.WithDescription(
			"Get all teams the authenticated user belongs to. Returns team IDs, "+
				"names, and owner user IDs. Use workboard_get_team_members to get "+
				"the full member list for a specific team.",
		),
	)
}

// Handle processes the tool call.
func (t *GetTeamsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, "/team", nil)
	if err != nil {
		return toolError(err), nil
	}

	teams := make([]map[string]any, 0)
	for _, raw := range rawTeams(resp) {
		if team, ok := raw.(map[string]any); ok {
			teams = append(teams, formatTeam(team))
		}
	}
	return jsonResult(map[string]any{"teams": teams}), nil
}

// rawTeams digs the team list out of the response regardless of wrapping.
func rawTeams(resp any) []any {
	switch v := resp.(type) {
	case []any:
		return v
	case map[string]any:
		for _, candidate := range []any{
			v["teams"],
			dig(v, "data", "teams"),
			dig(v, "data", "team"),
		} {
			switch c := candidate.(type) {
			case []any:
				return c
			case map[string]any:
				// Some deployments key teams by ID.
				items := make([]any, 0, len(c))
				for _, item := range c {
					items = append(items, item)
				}
				return items
			}
		}
	}
	return nil
}

func formatTeam(team map[string]any) map[string]any {
	return map[string]any{
		"team_id":       asInt(team["team_id"]),
		"team_name":     asString(team["team_name"]),
		"team_owner_id": team["team_owner"],
		"is_team_owner": asBool(team["is_team_owner"]),
	}
}

// GetTeamMembersTool handles workboard_get_team_members: resolve names and
// emails to WorkBoard user IDs through team membership.
type GetTeamMembersTool struct {
	api apiClient
}

// NewGetTeamMembersTool creates the tool with its dependencies.
func NewGetTeamMembersTool(api apiClient) *GetTeamMembersTool {
	return &GetTeamMembersTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetTeamMembersTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_team_members",
		mcp.WithDescription(
			"Get all members of a WorkBoard team, including their user IDs and "+
				"emails. Use this to resolve a person's name or email to their "+
				"WorkBoard user_id, then combine with workboard_get_objectives to "+
				"fetch their OKRs.",
		),
		mcp.WithNumber("team_id", mcp.Required(),
			mcp.Description("The WorkBoard team ID (get from workboard_get_teams)"),
		),
	)
}

// Handle processes the tool call.
func (t *GetTeamMembersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "team_id"); err != nil {
		return toolError(err), nil
	}

	teamID, err := idArg(req, "team_id")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateTeamID(teamID); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, fmt.Sprintf("/team/%d/user", teamID), nil)
	if err != nil {
		return toolError(err), nil
	}

	teamName := ""
	members := make([]map[string]any, 0)
	if m, ok := resp.(map[string]any); ok {
		team, _ := dig(m, "data", "team").(map[string]any)
		if team == nil {
			team, _ = m["team"].(map[string]any)
		}
		if team != nil {
			teamName = asString(team["team_name"])
			if rawMembers, ok := team["team_members"].([]any); ok {
				for _, raw := range rawMembers {
					if member, ok := raw.(map[string]any); ok {
						members = append(members, formatTeamMember(member))
					}
				}
			}
		}
	}

	return jsonResult(map[string]any{
		"team_id":   teamID,
		"team_name": teamName,
		"members":   members,
	}), nil
}

func formatTeamMember(member map[string]any) map[string]any {
	first := asString(member["first_name"])
	last := asString(member["last_name"])
	return map[string]any{
		"user_id":    asInt(member["id"]),
		"first_name": first,
		"last_name":  last,
		"full_name":  strings.TrimSpace(first + " " + last),
		"email":      asString(member["email"]),
		"team_role":  asString(member["team_role"]),
	}
}
