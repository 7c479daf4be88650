package tools

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/crunchtools/mcp-workboard/internal/audit"
)

// --- Test fakes ---

type call struct {
	method string
	path   string
}

// fakeAPI implements apiClient with canned responses keyed by
// "METHOD /path" and records every call in order.
type fakeAPI struct {
	calls     []call
	responses map[string]any
	errs      map[string]error
	bodies    map[string]map[string]any // last body per key
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		responses: map[string]any{},
		errs:      map[string]error{},
		bodies:    map[string]map[string]any{},
	}
}

func (f *fakeAPI) dispatch(method, path string, body map[string]any) (any, error) {
	f.calls = append(f.calls, call{method, path})
	key := method + " " + path
	if body != nil {
		f.bodies[key] = body
	}
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return f.responses[key], nil
}

func (f *fakeAPI) Get(ctx context.Context, path string, query url.Values) (any, error) {
	return f.dispatch("GET", path, nil)
}

func (f *fakeAPI) Post(ctx context.Context, path string, body map[string]any) (any, error) {
	return f.dispatch("POST", path, body)
}

func (f *fakeAPI) Put(ctx context.Context, path string, body map[string]any) (any, error) {
	return f.dispatch("PUT", path, body)
}

// fakeAudit implements auditSink and captures emitted records.
type fakeAudit struct {
	records []audit.Record
}

func (f *fakeAudit) Emit(ctx context.Context, rec audit.Record) {
	f.records = append(f.records, rec)
}

// --- Test helpers ---

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// decodeResult parses the JSON payload of a successful tool result.
func decodeResult(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if isErrorResult(result) {
		t.Fatalf("expected success, got tool error: %s", getResultText(result))
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(getResultText(result)), &m); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, getResultText(result))
	}
	return m
}

// --- GetUserTool ---

func TestGetUser_NoArgsFetchesCurrentUser(t *testing.T) {
	api := newFakeAPI()
	api.responses["GET /user"] = map[string]any{"user_id": float64(7), "email": "me@example.com"}
	tool := NewGetUserTool(api)

	result, err := tool.Handle(context.Background(), request(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	payload := decodeResult(t, result)
	user := payload["user"].(map[string]any)
	if user["user_id"] != float64(7) {
		t.Errorf("user_id = %v, want 7", user["user_id"])
	}
	if len(api.calls) != 1 || api.calls[0] != (call{"GET", "/user"}) {
		t.Errorf("calls = %v, want one GET /user", api.calls)
	}
}

func TestGetUser_WithID(t *testing.T) {
	api := newFakeAPI()
	api.responses["GET /user/42"] = map[string]any{"user_id": float64(42)}
	tool := NewGetUserTool(api)

	result, err := tool.Handle(context.Background(), request(map[string]any{"user_id": float64(42)}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result)
	if len(api.calls) != 1 || api.calls[0].path != "/user/42" {
		t.Errorf("calls = %v, want GET /user/42", api.calls)
	}
}

func TestGetUser_InvalidIDNoNetworkCall(t *testing.T) {
	api := newFakeAPI()
	tool := NewGetUserTool(api)

	for _, bad := range []any{float64(0), float64(-1), float64(1.5), "abc", true} {
		result, err := tool.Handle(context.Background(), request(map[string]any{"user_id": bad}))
		if err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
		if !isErrorResult(result) {
			t.Errorf("user_id=%v should fail validation", bad)
		}
	}
	if len(api.calls) != 0 {
		t.Errorf("invalid identifiers must not reach the network, got %v", api.calls)
	}
}

func TestGetUser_UnknownFieldRejected(t *testing.T) {
	api := newFakeAPI()
	tool := NewGetUserTool(api)

	result, err := tool.Handle(context.Background(), request(map[string]any{"user": float64(1)}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("unknown field should be rejected")
	}
	if !strings.Contains(getResultText(result), "user") {
		t.Errorf("error should name the rejected field, got: %s", getResultText(result))
	}
	if len(api.calls) != 0 {
		t.Errorf("no network call expected, got %v", api.calls)
	}
}

// --- CreateUserTool ---

func TestCreateUser_Valid(t *testing.T) {
	api := newFakeAPI()
	api.responses["POST /user"] = map[string]any{"user_id": float64(101), "email": "john@example.com"}
	sink := &fakeAudit{}
	tool := NewCreateUserTool(api, sink)

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"first_name": "John",
		"last_name":  "Doe",
		"email":      "john@example.com",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result)

	body := api.bodies["POST /user"]
	if body["email"] != "john@example.com" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["designation"]; ok {
		t.Error("designation should be omitted when not provided")
	}

	if len(sink.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Operation != "create_user" || rec.Outcome != audit.OutcomeNormal {
		t.Errorf("record = %+v", rec)
	}
	if rec.TargetID != 101 {
		t.Errorf("TargetID = %d, want 101", rec.TargetID)
	}
}

func TestCreateUser_UnknownFieldRejected(t *testing.T) {
	api := newFakeAPI()
	sink := &fakeAudit{}
	tool := NewCreateUserTool(api, sink)

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"first_name": "John",
		"last_name":  "Doe",
		"email":      "john@example.com",
		"is_admin":   true,
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("unknown field should reject the whole input")
	}
	if !strings.Contains(getResultText(result), "is_admin") {
		t.Errorf("error should name is_admin, got: %s", getResultText(result))
	}
	if len(api.calls) != 0 {
		t.Errorf("no network call expected, got %v", api.calls)
	}
	if len(sink.records) != 0 {
		t.Error("no audit record expected for rejected input")
	}
}

func TestCreateUser_BadEmailRejected(t *testing.T) {
	api := newFakeAPI()
	tool := NewCreateUserTool(api, &fakeAudit{})

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"first_name": "John",
		"last_name":  "Doe",
		"email":      "not-an-email",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("bad email should fail")
	}
	if len(api.calls) != 0 {
		t.Errorf("no network call expected, got %v", api.calls)
	}
}

// --- UpdateUserTool ---

func TestUpdateUser_PartialUpdate(t *testing.T) {
	api := newFakeAPI()
	api.responses["PUT /user/5"] = map[string]any{"user_id": float64(5)}
	sink := &fakeAudit{}
	tool := NewUpdateUserTool(api, sink)

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"user_id":     float64(5),
		"designation": "CTO",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	decodeResult(t, result)

	body := api.bodies["PUT /user/5"]
	if len(body) != 1 || body["designation"] != "CTO" {
		t.Errorf("body = %v, want only designation", body)
	}
	if len(sink.records) != 1 || sink.records[0].Operation != "update_user" {
		t.Errorf("audit records = %+v", sink.records)
	}
}

func TestUpdateUser_NoFieldsRejected(t *testing.T) {
	api := newFakeAPI()
	tool := NewUpdateUserTool(api, &fakeAudit{})

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"user_id": float64(5),
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("empty update should fail validation")
	}
	if len(api.calls) != 0 {
		t.Errorf("no network call expected, got %v", api.calls)
	}
}

func TestUpdateUser_ExplicitEmptyFieldRejected(t *testing.T) {
	api := newFakeAPI()
	tool := NewUpdateUserTool(api, &fakeAudit{})

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"user_id":    float64(5),
		"first_name": "",
		"email":      "a@b.com",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "first_name") {
		t.Errorf("explicit empty first_name should be rejected by name, got: %s", getResultText(result))
	}
	if len(api.calls) != 0 {
		t.Errorf("no network call expected, got %v", api.calls)
	}
}

func TestUpdateUser_UnknownFieldRejected(t *testing.T) {
	api := newFakeAPI()
	tool := NewUpdateUserTool(api, &fakeAudit{})

	result, err := tool.Handle(context.Background(), request(map[string]any{
		"user_id": float64(5),
		"role":    "admin",
	}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) || !strings.Contains(getResultText(result), "role") {
		t.Errorf("expected rejection naming role, got: %s", getResultText(result))
	}
}

// --- ListUsersTool ---

func TestListUsers(t *testing.T) {
	api := newFakeAPI()
	api.responses["GET /user"] = []any{
		map[string]any{"user_id": float64(1)},
		map[string]any{"user_id": float64(2)},
	}
	tool := NewListUsersTool(api)

	result, err := tool.Handle(context.Background(), request(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	payload := decodeResult(t, result)
	users := payload["users"].([]any)
	if len(users) != 2 {
		t.Errorf("users = %v", users)
	}
}

// --- Team tools ---

func TestGetTeams_ReshapesNestedPayload(t *testing.T) {
	api := newFakeAPI()
	api.responses["GET /team"] = map[string]any{
		"data": map[string]any{
			"teams": []any{
				map[string]any{
					"team_id":       "12",
					"team_name":     "Platform",
					"team_owner":    float64(7),
					"is_team_owner": true,
				},
			},
		},
	}
	tool := NewGetTeamsTool(api)

	result, err := tool.Handle(context.Background(), request(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	payload := decodeResult(t, result)
	teams := payload["teams"].([]any)
	if len(teams) != 1 {
		t.Fatalf("teams = %v", teams)
	}
	team := teams[0].(map[string]any)
	if team["team_id"] != float64(12) || team["team_name"] != "Platform" {
		t.Errorf("team = %v", team)
	}
	if team["is_team_owner"] != true {
		t.Errorf("is_team_owner = %v", team["is_team_owner"])
	}
}

func TestGetTeams_PlainArrayPayload(t *testing.T) {
	api := newFakeAPI()
	api.responses["GET /team"] = []any{
		map[string]any{"team_id": float64(1), "team_name": "A"},
		map[string]any{"team_id": float64(2), "team_name": "B"},
	}
	tool := NewGetTeamsTool(api)

	result, err := tool.Handle(context.Background(), request(nil))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	payload := decodeResult(t, result)
	if teams := payload["teams"].([]any); len(teams) != 2 {
		t.Errorf("teams = %v", teams)
	}
}

func TestGetTeamMembers_FormatsMembers(t *testing.T) {
	api := newFakeAPI()
	api.responses["GET /team/3/user"] = map[string]any{
		"data": map[string]any{
			"team": map[string]any{
				"team_name": "Platform",
				"team_members": []any{
					map[string]any{
						"id":         float64(9),
						"first_name": "Ada",
						"last_name":  "Lovelace",
						"email":      "ada@example.com",
						"team_role":  "member",
					},
				},
			},
		},
	}
	tool := NewGetTeamMembersTool(api)

	result, err := tool.Handle(context.Background(), request(map[string]any{"team_id": float64(3)}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	payload := decodeResult(t, result)
	if payload["team_name"] != "Platform" {
		t.Errorf("team_name = %v", payload["team_name"])
	}
	members := payload["members"].([]any)
	if len(members) != 1 {
		t.Fatalf("members = %v", members)
	}
	member := members[0].(map[string]any)
	if member["full_name"] != "Ada Lovelace" || member["user_id"] != float64(9) {
		t.Errorf("member = %v", member)
	}
}

func TestGetTeamMembers_InvalidTeamID(t *testing.T) {
	api := newFakeAPI()
	tool := NewGetTeamMembersTool(api)

	result, err := tool.Handle(context.Background(), request(map[string]any{"team_id": float64(-3)}))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("negative team_id should fail")
	}
	if len(api.calls) != 0 {
		t.Errorf("no network call expected, got %v", api.calls)
	}
}
