// Package tools implements the 13 WorkBoard MCP tool handlers.
//
// Each tool is a struct holding its dependencies and exposing a
// Definition() for registration plus a Handle() compatible with mcp-go's
// CallToolRequest signature. Caller-recoverable problems (validation
// failures, remote API errors) come back as tool error results;
// infrastructure faults come back as Go errors.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/crunchtools/mcp-workboard/internal/audit"
	"github.com/crunchtools/mcp-workboard/internal/workboard"
)

// apiClient is the surface tools consume from the transport client.
// Deliberately narrower than *workboard.Client: there is no Delete here,
// so no tool can grow a delete surface without widening this interface
// first.
type apiClient interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Post(ctx context.Context, path string, body map[string]any) (any, error)
	Put(ctx context.Context, path string, body map[string]any) (any, error)
}

// auditSink receives records for completed writes.
type auditSink interface {
	Emit(ctx context.Context, rec audit.Record)
}

var _ apiClient = (*workboard.Client)(nil)
var _ auditSink = (*audit.Logger)(nil)

// rejectUnknown enforces the closed-schema policy: any argument key
// outside the tool's enumerated set fails the whole call. Unexpected
// fields indicate a caller misunderstanding or an injection attempt and
// must fail loudly rather than be silently dropped.
func rejectUnknown(req mcp.CallToolRequest, allowed ...string) error {
	for key := range req.GetArguments() {
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return workboard.NewValidationError(key, "unknown field")
		}
	}
	return nil
}

// idArg extracts a required identifier argument. JSON numbers arrive as
// float64; integer-valued strings are accepted for clients that send
// everything as strings. Anything else, and anything non-positive, is an
// invalid identifier.
func idArg(req mcp.CallToolRequest, key string) (int64, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, workboard.NewValidationError(key, "required")
	}
	return coerceID(key, raw)
}

// optionalIDArg extracts an identifier that may be absent. The second
// return reports presence.
func optionalIDArg(req mcp.CallToolRequest, key string) (int64, bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return 0, false, nil
	}
	id, err := coerceID(key, raw)
	return id, err == nil, err
}

func coerceID(key string, raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) || v <= 0 {
			return 0, workboard.NewInvalidIdentifierError(key, v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return 0, workboard.NewInvalidIdentifierError(key, v)
		}
		return n, nil
	default:
		return 0, workboard.NewInvalidIdentifierError(key, raw)
	}
}

// optionalStringArg extracts an optional string argument. Absent means
// "not provided"; a key that is present but empty violates the remote
// minimum-length rule and fails here instead of reaching the network.
func optionalStringArg(req mcp.CallToolRequest, key string) (string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", workboard.NewValidationError(key, "must be a string")
	}
	if s == "" {
		return "", workboard.NewValidationError(key, "must not be empty")
	}
	return s, nil
}

// idListArg extracts an optional list of identifiers.
func idListArg(req mcp.CallToolRequest, key string) ([]int64, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, workboard.NewValidationError(key, "must be a list of positive integers")
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := coerceID(key, item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// keyResultSpecsArg extracts the optional key_results list for objective
// creation.
func keyResultSpecsArg(req mcp.CallToolRequest, key string) ([]workboard.KeyResultSpec, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, workboard.NewValidationError(key, "must be a list of key result objects")
	}
	specs := make([]workboard.KeyResultSpec, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, workboard.NewValidationError(
				fmt.Sprintf("%s[%d]", key, i), "must be an object")
		}
		spec := workboard.KeyResultSpec{}
		for field, value := range m {
			s, ok := value.(string)
			if !ok {
				return nil, workboard.NewValidationError(
					fmt.Sprintf("%s[%d].%s", key, i, field), "must be a string")
			}
			switch field {
			case "metric_name":
				spec.MetricName = s
			case "metric_start":
				spec.MetricStart = s
			case "metric_target":
				spec.MetricTarget = s
			case "metric_type":
				spec.MetricType = s
			default:
				return nil, workboard.NewValidationError(
					fmt.Sprintf("%s[%d].%s", key, i, field), "unknown field")
			}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// jsonResult renders a payload as an indented JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

// toolError converts a taxonomy error into a tool error result.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
