package workboard

import (
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Field bounds. User name bounds follow the WorkBoard API; the rest are
// local protective caps.
const (
	maxNameLen       = 255
	maxObjectiveName = 500
	maxPermissionLen = 100
	maxValueLen      = 20
	maxCommentLen    = 1000
)

// ValidateUserID checks that a user ID is a positive integer.
func ValidateUserID(id int64) (int64, error) {
	return validateID("user_id", id)
}

// ValidateObjectiveID checks that an objective ID is a positive integer.
func ValidateObjectiveID(id int64) (int64, error) {
	return validateID("objective_id", id)
}

// ValidateMetricID checks that a metric (key result) ID is a positive
// integer.
func ValidateMetricID(id int64) (int64, error) {
	return validateID("metric_id", id)
}

// ValidateTeamID checks that a team ID is a positive integer.
func ValidateTeamID(id int64) (int64, error) {
	return validateID("team_id", id)
}

func validateID(field string, id int64) (int64, error) {
	if id <= 0 {
		return 0, NewInvalidIdentifierError(field, id)
	}
	return id, nil
}

func validateRequiredString(field, value string, maxLen int) error {
	if value == "" {
		return NewValidationError(field, "must not be empty")
	}
	return validateOptionalString(field, value, maxLen)
}

func validateOptionalString(field, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return NewValidationError(field, fmt.Sprintf("must be at most %d characters", maxLen))
	}
	return nil
}

func validateEmail(field, value string) error {
	if value == "" {
		return NewValidationError(field, "must not be empty")
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value || !strings.Contains(value, "@") {
		return NewValidationError(field, "must be a valid email address")
	}
	return nil
}

// validateDate requires a strict YYYY-MM-DD calendar date. time.Parse
// rejects impossible dates (month 13, February 30th), the length check
// rejects alternative layouts time.Parse would normalize.
func validateDate(field, value string) error {
	if len(value) != len("2006-01-02") {
		return NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return NewValidationError(field, "must be a date in YYYY-MM-DD format")
	}
	return nil
}

// CreateUserInput holds validated arguments for creating a WorkBoard user.
type CreateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Designation string
}

// Validate checks every field against its bound.
func (in *CreateUserInput) Validate() error {
	if err := validateRequiredString("first_name", in.FirstName, maxNameLen); err != nil {
		return err
	}
	if err := validateRequiredString("last_name", in.LastName, maxNameLen); err != nil {
		return err
	}
	if err := validateEmail("email", in.Email); err != nil {
		return err
	}
	return validateOptionalString("designation", in.Designation, maxNameLen)
}

// Body returns the request payload for the create call.
func (in *CreateUserInput) Body() map[string]any {
	body := map[string]any{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"email":      in.Email,
	}
	if in.Designation != "" {
		body["designation"] = in.Designation
	}
	return body
}

// UpdateUserInput holds validated arguments for updating a user. All fields
// are optional; empty means "leave unchanged". At least one field must be
// present.
type UpdateUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Designation string
}

// Validate checks the provided fields and rejects an empty update.
func (in *UpdateUserInput) Validate() error {
	if in.FirstName == "" && in.LastName == "" && in.Email == "" && in.Designation == "" {
		return NewValidationError("update", "no fields provided for update")
	}
	if err := validateOptionalString("first_name", in.FirstName, maxNameLen); err != nil {
		return err
	}
	if err := validateOptionalString("last_name", in.LastName, maxNameLen); err != nil {
		return err
	}
	if in.Email != "" {
		if err := validateEmail("email", in.Email); err != nil {
			return err
		}
	}
	return validateOptionalString("designation", in.Designation, maxNameLen)
}

// Body returns the request payload containing only the provided fields.
func (in *UpdateUserInput) Body() map[string]any {
	body := map[string]any{}
	if in.FirstName != "" {
		body["first_name"] = in.FirstName
	}
	if in.LastName != "" {
		body["last_name"] = in.LastName
	}
	if in.Email != "" {
		body["email"] = in.Email
	}
	if in.Designation != "" {
		body["designation"] = in.Designation
	}
	return body
}

// KeyResultSpec describes one key result attached to a new objective.
type KeyResultSpec struct {
	MetricName   string
	MetricStart  string
	MetricTarget string
	MetricType   string
}

func (kr *KeyResultSpec) validate(index int) error {
	field := fmt.Sprintf("key_results[%d]", index)
	if err := validateRequiredString(field+".metric_name", kr.MetricName, maxObjectiveName); err != nil {
		return err
	}
	if err := validateOptionalString(field+".metric_start", kr.MetricStart, maxValueLen); err != nil {
		return err
	}
	if err := validateOptionalString(field+".metric_target", kr.MetricTarget, maxValueLen); err != nil {
		return err
	}
	return validateOptionalString(field+".metric_type", kr.MetricType, maxNameLen)
}

// CreateObjectiveInput holds validated arguments for creating an objective
// with optional key results.
type CreateObjectiveInput struct {
	Name       string
	Owner      string
	StartDate  string
	TargetDate string
	Narrative  string
	GoalType   string
	Permission string
	KeyResults []KeyResultSpec
}

// Validate checks every field against its bound.
func (in *CreateObjectiveInput) Validate() error {
	if err := validateRequiredString("name", in.Name, maxObjectiveName); err != nil {
		return err
	}
	if err := validateRequiredString("owner", in.Owner, maxNameLen); err != nil {
		return err
	}
	if err := validateDate("start_date", in.StartDate); err != nil {
		return err
	}
	if err := validateDate("target_date", in.TargetDate); err != nil {
		return err
	}
	if err := validateOptionalString("narrative", in.Narrative, maxCommentLen); err != nil {
		return err
	}
	if in.GoalType != "1" && in.GoalType != "2" {
		return NewValidationError("goal_type", `must be "1" (team) or "2" (personal)`)
	}
	if err := validateRequiredString("permission", in.Permission, maxPermissionLen); err != nil {
		return err
	}
	for i := range in.KeyResults {
		if err := in.KeyResults[i].validate(i); err != nil {
			return err
		}
	}
	return nil
}

// Body returns the request payload for the create call.
func (in *CreateObjectiveInput) Body() map[string]any {
	body := map[string]any{
		"goal_name":   in.Name,
		"goal_owner":  in.Owner,
		"start_date":  in.StartDate,
		"target_date": in.TargetDate,
		"goal_type":   in.GoalType,
		"permission":  in.Permission,
	}
	if in.Narrative != "" {
		body["narrative"] = in.Narrative
	}
	if len(in.KeyResults) > 0 {
		metrics := make([]map[string]any, 0, len(in.KeyResults))
		for _, kr := range in.KeyResults {
			m := map[string]any{"metric_name": kr.MetricName}
			if kr.MetricStart != "" {
				m["metric_start"] = kr.MetricStart
			}
			if kr.MetricTarget != "" {
				m["metric_target"] = kr.MetricTarget
			}
			if kr.MetricType != "" {
				m["metric_type"] = kr.MetricType
			}
			metrics = append(metrics, m)
		}
		body["metrics"] = metrics
	}
	return body
}

// UpdateKeyResultInput holds validated arguments for a key result check-in.
type UpdateKeyResultInput struct {
	Value   string
	Comment string
}

// Validate requires a non-negative numeric value in a bounded string and a
// bounded optional comment.
func (in *UpdateKeyResultInput) Validate() error {
	if in.Value == "" {
		return NewValidationError("value", "must not be empty")
	}
	if len(in.Value) > maxValueLen {
		return NewValidationError("value", fmt.Sprintf("must be at most %d characters", maxValueLen))
	}
	// ParseFloat also accepts "NaN", "Inf" and hex floats; progress is a
	// plain decimal number, so reject those before parsing. NaN would
	// additionally slip past both the sign check and decrease detection.
	for _, r := range in.Value {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '+' || r == '-' || r == 'e' || r == 'E':
		default:
			return NewValidationError("value", "must be a number")
		}
	}
	n, err := strconv.ParseFloat(in.Value, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return NewValidationError("value", "must be a number")
	}
	if n < 0 {
		return NewValidationError("value", "must be non-negative")
	}
	return validateOptionalString("comment", in.Comment, maxCommentLen)
}

// NumericValue returns the parsed progress value. Validate must have
// succeeded first.
func (in *UpdateKeyResultInput) NumericValue() float64 {
	n, _ := strconv.ParseFloat(in.Value, 64)
	return n
}

// Body returns the request payload for the check-in call.
func (in *UpdateKeyResultInput) Body() map[string]any {
	body := map[string]any{"metric_progress": in.Value}
	if in.Comment != "" {
		body["comment"] = in.Comment
	}
	return body
}
