package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator 把 validator 的第一条字段错误转换为 ValidationError
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewValidationError("", err.Error())
	}

	fe := verrs[0]
	field := toSnake(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required", "required_if":
		msg = field + " is required"
	case "oneof":
		msg = fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		msg = fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		msg = field + " is invalid"
	}
	return NewValidationError(field, msg)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
