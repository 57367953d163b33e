package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrUnauthorized       = errors.New("not allowed")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError carries field level messages. Nothing is written when one
// is returned.
type ValidationError struct {
	Fields map[string][]string
	order  []string
}

func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

// Messages flattens the field errors in the order they were added.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.order))
	for _, f := range e.order {
		out = append(out, e.Fields[f]...)
	}
	return out
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), ", ")
}

func (e *ValidationError) orNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and converts failures into a ValidationError.
func check(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	verr := &ValidationError{}
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), message(fe))
	}
	return verr
}

func message(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s can't be blank", label)
	case "max":
		return fmt.Sprintf("%s is too long (maximum is %s characters)", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s is too short (minimum is %s characters)", label, fe.Param())
	case "email":
		return fmt.Sprintf("%s is invalid", label)
	case "oneof":
		return fmt.Sprintf("%s is not included in the list", label)
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

// humanize turns "guest_name" into "Guest name".
func humanize(field string) string {
	s := strings.ReplaceAll(field, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// notFound maps gorm's missing-row error onto ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
