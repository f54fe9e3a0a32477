package manager

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/modelapi/internal/domain"
)

// validate is safe for concurrent use and caches parsed tags.
var validate = validator.New()

// Validate checks inputs against the model's rule set named set.
//
// The named set is used when present and non-empty, otherwise the
// "default" set. A model without rules, or without either set, is a
// ConfigError. Fields are checked in sorted order and a missing field is
// validated as nil, so "required" fails while "omitempty" passes. A value
// whose type cannot be stored in the field's column is invalid. Every
// failing field contributes one message to the ValidationError details.
func (m *Manager) Validate(inputs domain.Attributes, set string) error {
	rules, err := m.ruleSet(set)
	if err != nil {
		return err
	}
	columns := m.model.Attributes()

	fields := make([]string, 0, len(rules))
	for field := range rules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var failed, messages []string
	for _, field := range fields {
		tag := rules[field]
		if tag == "" {
			continue
		}
		value, proto := inputs[field], columns[field]
		if !conforms(proto, value) {
			failed = append(failed, field)
			messages = append(messages, invalidMessage(field))
			continue
		}

		fieldErrs, invalid, err := m.checkField(field, value, proto, tag)
		if err != nil {
			return err
		}
		if invalid {
			failed = append(failed, field)
			messages = append(messages, invalidMessage(field))
			continue
		}
		for _, fe := range fieldErrs {
			failed = append(failed, field)
			messages = append(messages, fieldMessage(field, fe))
		}
	}

	if len(messages) == 0 {
		return nil
	}

	m.log().Debug("validation failed",
		slog.String("rule_set", set),
		slog.Any("fields", failed))
	return domain.NewValidationError(failed, messages)
}

func (m *Manager) ruleSet(set string) (map[string]string, error) {
	rules := domain.ConfigOf(m.model).Rules
	if len(rules) == 0 {
		return nil, configError(m.ModelKey(), "no validation rules declared")
	}
	if chosen := rules[set]; len(chosen) > 0 {
		return chosen, nil
	}
	if chosen := rules[domain.DefaultRuleSet]; len(chosen) > 0 {
		return chosen, nil
	}
	return nil, configError(m.ModelKey(), "neither rule set %q nor %q is declared", set, domain.DefaultRuleSet)
}

// checkField runs one rule. validator panics both on tags it cannot parse
// and on tags that do not apply to the value's type. Replaying the rule on
// the column's zero value tells a broken rule (ConfigError) from bad input
// (invalid).
func (m *Manager) checkField(
	field string,
	value, proto any,
	tag string,
) (errs validator.ValidationErrors, invalid bool, cerr error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if proto != nil && ruleApplies(proto, tag) {
			errs, invalid, cerr = nil, true, nil
			return
		}
		cerr = configError(m.ModelKey(), "invalid rule %q for field %q: %v", tag, field, r)
	}()

	err := validate.Var(value, tag)
	if err == nil {
		return nil, false, nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		return fieldErrs, false, nil
	}
	return nil, false, &ConfigError{
		Model:   m.ModelKey(),
		Message: fmt.Sprintf("cannot validate field %q", field),
		Err:     err,
	}
}

// ruleApplies reports whether tag can be evaluated on values shaped like proto.
func ruleApplies(proto any, tag string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = validate.Var(proto, tag)
	return true
}

var timeType = reflect.TypeOf(time.Time{})

// conforms reports whether value can be stored in a column whose zero value
// is proto. Nil always conforms; the rules decide whether it is allowed.
func conforms(proto, value any) bool {
	if proto == nil || value == nil {
		return true
	}
	want := reflect.TypeOf(proto)
	got := reflect.ValueOf(value)

	if n, ok := value.(json.Number); ok {
		switch want.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			_, err := n.Int64()
			return err == nil
		case reflect.Float32, reflect.Float64:
			_, err := n.Float64()
			return err == nil
		}
		return false
	}

	switch want.Kind() {
	case reflect.String:
		return got.Kind() == reflect.String
	case reflect.Bool:
		return got.Kind() == reflect.Bool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		switch got.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return true
		case reflect.Float32, reflect.Float64:
			f := got.Float()
			return f == math.Trunc(f) && !math.IsInf(f, 0)
		}
		return false
	case reflect.Float32, reflect.Float64:
		switch got.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return true
		}
		return false
	}
	if want == timeType {
		return got.Kind() == reflect.String || got.Type() == timeType
	}
	return true
}

func invalidMessage(field string) string {
	return fmt.Sprintf("The %s field is invalid.", strings.ReplaceAll(field, "_", " "))
}

// fieldMessage renders a failed rule as a sentence naming the field.
func fieldMessage(field string, fe validator.FieldError) string {
	name := strings.ReplaceAll(field, "_", " ")
	sized := isSized(fe.Kind())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "uuid", "uuid4":
		return fmt.Sprintf("The %s must be a valid UUID.", name)
	case "boolean":
		return fmt.Sprintf("The %s field must be true or false.", name)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "min", "gte":
		if sized {
			return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s.", name, fe.Param())
	case "max", "lte":
		if sized {
			return fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s.", name, fe.Param())
	case "gt":
		return fmt.Sprintf("The %s must be greater than %s.", name, fe.Param())
	case "lt":
		return fmt.Sprintf("The %s must be less than %s.", name, fe.Param())
	default:
		return invalidMessage(field)
	}
}

func isSized(k reflect.Kind) bool {
	return k == reflect.String || k == reflect.Slice || k == reflect.Map || k == reflect.Array
}
