// Package validation checks request structs with go-playground/validator
// and reports the first failure as a validation_failed domain error.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// rule is a custom tag together with the message shown when it fails.
type rule struct {
	check   validator.Func
	message string
}

var rules = map[string]rule{
	"notblank": {
		check:   func(fl validator.FieldLevel) bool { return strings.TrimSpace(fl.Field().String()) != "" },
		message: "must not be blank",
	},
	"role": {
		check:   func(fl validator.FieldLevel) bool { return domain.Role(fl.Field().String()).IsValid() },
		message: "must be a known role",
	},
	"plan": {
		check: func(fl validator.FieldLevel) bool {
			_, ok := domain.ParsePlan(fl.Field().String())
			return ok
		},
		message: "must be one of FREE, FAMILY or PREMIUM",
	},
}

// builtin messages; the param, if any, is appended after the text.
var builtin = map[string]string{
	"required": "is required",
	"uuid":     "must be a valid uuid",
	"email":    "must be a valid email",
	"min":      "must be at least",
	"max":      "must be at most",
	"oneof":    "must be one of",
}

var std = build()

func build() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	for tag, r := range rules {
		if err := v.RegisterValidation(tag, r.check); err != nil {
			panic(err)
		}
	}
	return v
}

// jsonName reports fields by their wire name so messages match the payload.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

// Validate runs the struct tags on req.
func Validate(req any) error {
	err := std.Struct(req)
	if err == nil {
		return nil
	}
	return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
}

// ErrorMessage renders the first failure of a validator error.
func ErrorMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request body"
	}
	return describe(fieldErrs[0])
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.ActualTag()
	if r, ok := rules[tag]; ok {
		return field + " " + r.message
	}
	text, ok := builtin[tag]
	if !ok {
		return field + " is invalid"
	}
	if p := fe.Param(); p != "" {
		if tag == "oneof" {
			p = "[" + p + "]"
		}
		return field + " " + text + " " + p
	}
	return field + " " + text
}
