package models

import (
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 64 << 10

var toolNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{2,30}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("toolname", func(fl validator.FieldLevel) bool {
		return toolNamePattern.MatchString(fl.Field().String())
	})
	return v
}

// RegisterToolRequest for POST /tools/register. The code is described to
// the LLM runner and never executed locally.
type RegisterToolRequest struct {
	ToolName    string `json:"tool_name" validate:"required,toolname"`
	Description string `json:"description" validate:"omitempty,min=5,max=120"`
	Code        string `json:"code" validate:"required,min=10,max=2000"`
}

// DefaultDescription is stored for code tools registered without one.
const DefaultDescription = "No description provided"

// RegisterLLMToolRequest for POST /tools/register_llm
type RegisterLLMToolRequest struct {
	Name        string `json:"name" validate:"required,toolname"`
	Description string `json:"description" validate:"required,min=5,max=120"`
}

// RegisterSourceRequest for POST /tools/register_source
type RegisterSourceRequest struct {
	Name        string `json:"name" validate:"required,toolname"`
	Description string `json:"description" validate:"omitempty,min=5,max=120"`
	Source      string `json:"source" validate:"required,min=10"`
}

// ExecuteRequest for POST /tools/execute
type ExecuteRequest struct {
	ToolType   string         `json:"tool_type" validate:"required"`
	Parameters map[string]any `json:"parameters"`
}

// CreateAgentRequest for POST /agents
type CreateAgentRequest struct {
	ID          string   `json:"id,omitempty" validate:"omitempty,max=64"`
	Name        string   `json:"name" validate:"required,max=80"`
	Description string   `json:"description" validate:"max=500"`
	Tools       []string `json:"tools" validate:"dive,required"`
}

// Validate runs struct validation and flattens the failures into one
// message naming the offending JSON fields.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.Newf("invalid request: %s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "toolname":
		return fe.Field() + " must start with a letter or underscore and contain 3-31 letters, digits or underscores"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " failed " + fe.Tag()
	}
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.Wrap(err, "invalid JSON body")
	}
	return Validate(v)
}
