// Package validate decodes submitted forms into their typed structs and runs
// the field rules declared in the struct tags.
//
// Form structs use three tags:
//
//	schema:   the form field name
//	validate: the rules (go-playground/validator syntax)
//	label:    the human name used in messages
//
// A field tagged fill:"-" is never echoed back to the page. Echoed values
// are cut to the field's max (or len) rule so they fit in a cookie session.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/stenstromen/todogate/model"
)

// Echo limit for fields without a max or len rule.
const defaultFillLen = 64

var (
	decoder = newDecoder()
	checker = newValidator()
)

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("schema")
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt only looks at the first 72 bytes, max counts characters
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// Result of a form check. Err is keyed by form field name; Fill holds the
// submitted values that are safe to show again.
type Result struct {
	Err  model.Messages
	Fill model.Fill
}

func (r Result) Valid() bool {
	return len(r.Err) == 0
}

// Form decodes values into dst, which must be a pointer to a form struct,
// and validates it. Every failing field is reported.
func Form(dst any, values url.Values) Result {
	rt := reflect.TypeOf(dst)
	if rt == nil || rt.Kind() != reflect.Pointer || rt.Elem().Kind() != reflect.Struct {
		panic(fmt.Sprintf("validate: Form needs a pointer to struct, got %T", dst))
	}
	rt = rt.Elem()

	res := Result{Fill: fill(rt, values)}
	errs := model.Messages{}

	if err := decoder.Decode(dst, values); err != nil {
		var multi schema.MultiError
		if errors.As(err, &multi) {
			for field := range multi {
				errs[field] = fmt.Sprintf("%s is invalid.", labelOf(rt, field))
			}
		} else {
			errs[model.MsgKey] = model.MsgInvalidRequest
		}
	}

	if err := checker.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs[model.MsgKey] = model.MsgInvalidRequest
		}
		for _, fe := range fieldErrs {
			if _, seen := errs[fe.Field()]; seen {
				continue
			}
			errs[fe.Field()] = message(rt, fe)
		}
	}

	if len(errs) > 0 {
		res.Err = errs
	}
	return res
}

func message(rt reflect.Type, fe validator.FieldError) string {
	label := labelOf(rt, fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required.", label)
	case "email":
		return fmt.Sprintf("%s must be a valid email address.", label)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters.", label, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be a number.", label)
	case "eqfield":
		return fmt.Sprintf("%s does not match %s.", label, goFieldLabel(rt, fe.Param()))
	case "datetime":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD).", label)
	default:
		return fmt.Sprintf("%s is invalid.", label)
	}
}

// labelOf resolves a form field name to its label.
func labelOf(rt reflect.Type, name string) string {
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Tag.Get("schema") == name {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			break
		}
	}
	return name
}

func goFieldLabel(rt reflect.Type, goName string) string {
	f, ok := rt.FieldByName(goName)
	if !ok {
		return goName
	}
	if l := f.Tag.Get("label"); l != "" {
		return l
	}
	return goName
}

func fill(rt reflect.Type, values url.Values) model.Fill {
	out := model.Fill{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := f.Tag.Get("schema")
		if name == "" || name == "-" || f.Tag.Get("fill") == "-" {
			continue
		}
		if _, ok := values[name]; ok {
			out[name] = truncate(strings.TrimSpace(values.Get(name)), fillLimit(f))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// fillLimit reads the character limit from the field's max or len rule.
func fillLimit(f reflect.StructField) int {
	for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
		name, param, ok := strings.Cut(rule, "=")
		if !ok || (name != "max" && name != "len") {
			continue
		}
		if n, err := strconv.Atoi(param); err == nil && n > 0 {
			return n
		}
	}
	return defaultFillLen
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
