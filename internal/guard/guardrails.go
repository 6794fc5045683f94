package guard

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ccastromar/aos-diet-planner/internal/config"
)

// Intolerances accepted by the upstream search.
var Intolerances = []string{
	"dairy", "egg", "gluten", "grain", "peanut", "seafood",
	"sesame", "shellfish", "soy", "sulfite", "tree nut", "wheat",
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("intolerance", validateIntolerance)
		_ = v.RegisterValidation("timeframe", validateTimeFrame)
		validate = v
	})
	return validate
}

func validateIntolerance(fl validator.FieldLevel) bool {
	s := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	for _, it := range Intolerances {
		if s == it {
			return true
		}
	}
	return false
}

func validateTimeFrame(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "", "day", "week":
		return true
	}
	return false
}

// Error lists the offending fields of a rejected argument struct.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return strings.Join(parts, "; ")
}

// Validate checks v against its `validate` struct tags.
func Validate(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &Error{Fields: make(map[string]string, len(verrs))}
	for _, e := range verrs {
		field := e.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:]
		}
		out.Fields[field] = message(field, e)
	}
	return out
}

func message(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without", "excluded_with":
		return fmt.Sprintf("%s: provide exactly one of text or filters", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "intolerance":
		return fmt.Sprintf("%s: unknown intolerance %q (allowed: %s)", field, e.Value(), strings.Join(Intolerances, ", "))
	case "timeframe":
		return fmt.Sprintf("%s must be day or week", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// ValidateToolMode rejects tools that would change upstream state. Every
// operation of this service is a lookup.
func ValidateToolMode(t config.Tool) error {
	switch t.Mode {
	case "", "read":
		return nil
	default:
		return fmt.Errorf("tool %q has mode %q; only read tools are exposed", t.Name, t.Mode)
	}
}
