package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/crunchtools/mcp-workboard/internal/audit"
	"github.com/crunchtools/mcp-workboard/internal/workboard"
)

// GetUserTool handles workboard_get_user: fetch a user by ID, or the
// current authenticated user when no ID is given.
type GetUserTool struct {
	api apiClient
}

// NewGetUserTool creates the tool with its dependencies.
func NewGetUserTool(api apiClient) *GetUserTool {
	return &GetUserTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *GetUserTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_get_user",
		mcp.WithDescription(
			"Get a WorkBoard user by ID, or the current authenticated user. "+
				"Call with no arguments to identify the current user.",
		),
		mcp.WithNumber("user_id",
			mcp.Description("User ID (positive integer). Omit to get the current authenticated user."),
		),
	)
}

// Handle processes the tool call.
func (t *GetUserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "user_id"); err != nil {
		return toolError(err), nil
	}

	path := "/user"
	if userID, ok, err := optionalIDArg(req, "user_id"); err != nil {
		return toolError(err), nil
	} else if ok {
		if _, err := workboard.ValidateUserID(userID); err != nil {
			return toolError(err), nil
		}
		path = fmt.Sprintf("/user/%d", userID)
	}

	resp, err := t.api.Get(ctx, path, nil)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"user": resp}), nil
}

// ListUsersTool handles workboard_list_users. The remote system requires
// the Data-Admin scope; enforcement is entirely on its side.
type ListUsersTool struct {
	api apiClient
}

// NewListUsersTool creates the tool with its dependencies.
func NewListUsersTool(api apiClient) *ListUsersTool {
	return &ListUsersTool{api: api}
}

// Definition returns the MCP tool definition for registration.
func (t *ListUsersTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_list_users",
		mcp.WithDescription("List all WorkBoard users (requires Data-Admin role)."),
	)
}

// Handle processes the tool call.
func (t *ListUsersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Get(ctx, "/user", nil)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(map[string]any{"users": resp}), nil
}

// CreateUserTool handles workboard_create_user.
type CreateUserTool struct {
	api   apiClient
	audit auditSink
}

// NewCreateUserTool creates the tool with its dependencies.
func NewCreateUserTool(api apiClient, audit auditSink) *CreateUserTool {
	return &CreateUserTool{api: api, audit: audit}
}

// Definition returns the MCP tool definition for registration.
func (t *CreateUserTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_create_user",
		mcp.WithDescription("Create a new WorkBoard user (requires Data-Admin role)."),
		mcp.WithString("first_name", mcp.Required(),
			mcp.Description("User's first name"),
		),
		mcp.WithString("last_name", mcp.Required(),
			mcp.Description("User's last name"),
		),
		mcp.WithString("email", mcp.Required(),
			mcp.Description("User's email address"),
		),
		mcp.WithString("designation",
			mcp.Description("User's job title or designation"),
		),
	)
}

// Handle processes the tool call.
func (t *CreateUserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "first_name", "last_name", "email", "designation"); err != nil {
		return toolError(err), nil
	}

	input := workboard.CreateUserInput{
		FirstName:   req.GetString("first_name", ""),
		LastName:    req.GetString("last_name", ""),
		Email:       req.GetString("email", ""),
		Designation: req.GetString("designation", ""),
	}
	if err := input.Validate(); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Post(ctx, "/user", input.Body())
	if err != nil {
		return toolError(err), nil
	}

	t.audit.Emit(ctx, audit.NewRecord("create_user",
		createdID(resp, "user_id"), "", input.Email, audit.OutcomeNormal))

	return jsonResult(map[string]any{"user": resp}), nil
}

// UpdateUserTool handles workboard_update_user. Only the provided fields
// are sent; an update with no fields is a validation failure.
type UpdateUserTool struct {
	api   apiClient
	audit auditSink
}

// NewUpdateUserTool creates the tool with its dependencies.
func NewUpdateUserTool(api apiClient, audit auditSink) *UpdateUserTool {
	return &UpdateUserTool{api: api, audit: audit}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateUserTool) Definition() mcp.Tool {
	return mcp.NewTool("workboard_update_user",
		mcp.WithDescription(
			"Update an existing WorkBoard user. Only the provided fields are changed.",
		),
		mcp.WithNumber("user_id", mcp.Required(),
			mcp.Description("User ID (positive integer)"),
		),
		mcp.WithString("first_name",
			mcp.Description("User's first name"),
		),
		mcp.WithString("last_name",
			mcp.Description("User's last name"),
		),
		mcp.WithString("email",
			mcp.Description("User's email address"),
		),
		mcp.WithString("designation",
			mcp.Description("User's job title or designation"),
		),
	)
}

// Handle processes the tool call.
func (t *UpdateUserTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := rejectUnknown(req, "user_id", "first_name", "last_name", "email", "designation"); err != nil {
		return toolError(err), nil
	}

	userID, err := idArg(req, "user_id")
	if err != nil {
		return toolError(err), nil
	}
	if _, err := workboard.ValidateUserID(userID); err != nil {
		return toolError(err), nil
	}

	var input workboard.UpdateUserInput
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"first_name", &input.FirstName},
		{"last_name", &input.LastName},
		{"email", &input.Email},
		{"designation", &input.Designation},
	} {
		v, err := optionalStringArg(req, f.key)
		if err != nil {
			return toolError(err), nil
		}
		*f.dst = v
	}
	if err := input.Validate(); err != nil {
		return toolError(err), nil
	}

	resp, err := t.api.Put(ctx, fmt.Sprintf("/user/%d", userID), input.Body())
	if err != nil {
		return toolError(err), nil
	}

	t.audit.Emit(ctx, audit.NewRecord("update_user", userID, "", "", audit.OutcomeNormal))

	return jsonResult(map[string]any{"user": resp}), nil
}

// createdID digs the identifier of a freshly created resource out of a
// response payload, tolerating a data wrapper. Returns 0 when the shape is
// unrecognized; the audit record still gets written.
func createdID(resp any, key string) int64 {
	m, ok := resp.(map[string]any)
	if !ok {
		return 0
	}
	if inner, ok := m["data"].(map[string]any); ok {
		m = inner
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
