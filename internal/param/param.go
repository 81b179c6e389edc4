package param

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Constraint restricts the values a Parameter will accept, beyond its
// Type. Regex is matched with the standard regexp package; Range is a
// validator/v10 tag fragment (e.g. "gte=0,lte=100", or left empty to
// skip range checks), matching spec.md §3's "optional constraints
// (regex, range)".
type Constraint struct {
	// Regex is a regular expression the value (as a string) must match.
	Regex string
	// Range is a validator "gte=x,lte=y"-style tag applied to numeric values.
	// Leave empty to skip range checking.
	Range string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// check runs the constraint against v, returning a validation error if it fails.
func (c *Constraint) check(v any) error {
	if c == nil {
		return nil
	}
	if c.Regex != "" {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("regex constraint applies only to strings, got %T", v)
		}
		matched, err := regexp.MatchString(c.Regex, s)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", c.Regex, err)
		}
		if !matched {
			return fmt.Errorf("value %q does not match pattern %q", s, c.Regex)
		}
	}
	if c.Range != "" {
		if err := validate.Var(v, c.Range); err != nil {
			return fmt.Errorf("value %v violates range %q: %w", v, c.Range, err)
		}
	}
	return nil
}

// Parameter is a class-level declaration of a named, typed field.
// Name prefix determines its role in a Dag: "in_" for inputs wired from
// upstream blocks, "out_" for outputs a block's Execute writes, anything
// else is block-internal state or configuration.
type Parameter struct {
	Name       string
	Type       Type
	Default    any
	Constraint *Constraint
	Doc        string

	// AllowRefs marks a parameter that must never be used as a connection
	// source; a source field with AllowRefs=true is a structural error
	// (spec.md §3's "src_field ... not allow_refs=true").
	AllowRefs bool
}

// IsInput reports whether this is an "in_"-prefixed input field.
func (p *Parameter) IsInput() bool { return strings.HasPrefix(p.Name, "in_") }

// IsOutput reports whether this is an "out_"-prefixed output field.
func (p *Parameter) IsOutput() bool { return strings.HasPrefix(p.Name, "out_") }

// IsInternal reports whether this field is neither an input nor an output.
func (p *Parameter) IsInternal() bool { return !p.IsInput() && !p.IsOutput() }

// ValidationError is returned when a value fails a Parameter's type or
// constraint checks. It never sets a Dag's cancellation flag (spec.md §7).
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (p *Parameter) validateType(v any) error {
	switch p.Type {
	case TypeInt:
		switch v.(type) {
		case int, int32, int64:
			return nil
		}
		return fmt.Errorf("expected int, got %T", v)
	case TypeFloat:
		switch v.(type) {
		case float32, float64, int, int64:
			return nil
		}
		return fmt.Errorf("expected float, got %T", v)
	case TypeBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", v)
		}
		return nil
	case TypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("expected string, got %T", v)
		}
		return nil
	case TypeTable:
		if _, ok := v.([]Row); !ok {
			return fmt.Errorf("expected []param.Row, got %T", v)
		}
		return nil
	case TypeObject:
		return nil
	default:
		return fmt.Errorf("unknown parameter type %v", p.Type)
	}
}

// Validate checks v against the parameter's declared type and constraint.
func (p *Parameter) Validate(v any) error {
	if err := p.validateType(v); err != nil {
		return &ValidationError{Field: p.Name, Err: err}
	}
	if err := p.Constraint.check(v); err != nil {
		return &ValidationError{Field: p.Name, Err: err}
	}
	return nil
}
