package forma

import (
	"cmp"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	strict   = bluemonday.StrictPolicy()
)

// Predicate reports message when ok returns false.
func Predicate[V any](ok func(V) bool, message string) Validator[V] {
	return ValidatorFunc[V](func(value V) []string {
		if ok(value) {
			return nil
		}
		return []string{message}
	})
}

// Required reports message when the value is the zero value of V.
func Required[V comparable](message string) Validator[V] {
	return Predicate(func(value V) bool {
		var zero V
		return value != zero
	}, message)
}

// MinLength reports message when the string has fewer than n characters.
func MinLength(n int, message string) Validator[string] {
	return Predicate(func(value string) bool {
		return utf8.RuneCountInString(value) >= n
	}, message)
}

// MaxLength reports message when the string has more than n characters.
func MaxLength(n int, message string) Validator[string] {
	return Predicate(func(value string) bool {
		return utf8.RuneCountInString(value) <= n
	}, message)
}

// Min reports message when the value is below bound.
func Min[V cmp.Ordered](bound V, message string) Validator[V] {
	return Predicate(func(value V) bool {
		return cmp.Compare(value, bound) >= 0
	}, message)
}

// Max reports message when the value is above bound.
func Max[V cmp.Ordered](bound V, message string) Validator[V] {
	return Predicate(func(value V) bool {
		return cmp.Compare(value, bound) <= 0
	}, message)
}

// Pattern reports message when the string does not match re.
func Pattern(re *regexp.Regexp, message string) Validator[string] {
	return Predicate(re.MatchString, message)
}

// NoMarkup reports message when the string contains HTML markup.
func NoMarkup(message string) Validator[string] {
	return Predicate(func(value string) bool {
		return html.UnescapeString(strict.Sanitize(value)) == value
	}, message)
}

// All runs every validator and concatenates their messages in order. Unlike
// a chain that stops at the first failure, every rule gets to report.
func All[V any](validators ...Validator[V]) Validator[V] {
	return ValidatorFunc[V](func(value V) []string {
		var messages []string
		for _, v := range validators {
			if v == nil {
				continue
			}
			messages = append(messages, v.Check(value)...)
		}
		return messages
	})
}

// Tag validates the value against a go-playground/validator tag expression
// such as "required,email" or "min=1,max=65535". Each failed tag yields one
// message; messages overrides the default text per tag name.
func Tag[V any](expr string, messages ...map[string]string) Validator[V] {
	overrides := make(map[string]string)
	for _, m := range messages {
		for tag, text := range m {
			overrides[tag] = text
		}
	}
	return ValidatorFunc[V](func(value V) []string {
		err := validate.Var(value, expr)
		if err == nil {
			return nil
		}
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []string{err.Error()}
		}
		out := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			if text, ok := overrides[fe.Tag()]; ok {
				out = append(out, text)
				continue
			}
			out = append(out, tagMessage(fe.Tag(), fe.Param()))
		}
		return out
	})
}

func tagMessage(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", param)
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", param)
	case "lt":
		return fmt.Sprintf("must be less than %s", param)
	case "len":
		return fmt.Sprintf("must have length %s", param)
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.Join(strings.Fields(param), ", "))
	default:
		if param != "" {
			return fmt.Sprintf("failed %s=%s", tag, param)
		}
		return fmt.Sprintf("failed %s", tag)
	}
}
