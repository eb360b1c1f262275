package bets

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	playground "github.com/go-playground/validator/v10"

	"github.com/trentd187/golf-wagers/internal/domain"
)

// validator returns the shared schema validator. Field names in errors use
// the json key so they match what the caller sent.
var validator = sync.OnceValue(func() *playground.Validate {
	v := playground.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("betkind", validateKind)
	return v
})

func validateKind(fl playground.FieldLevel) bool {
	return slices.Contains(Kinds, Kind(fl.Field().String()))
}

// configError turns the first schema violation into a ConfigError.
func configError(err error) error {
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.NewConfigError("bet", "%v", err)
	}
	e := verrs[0]
	return domain.NewConfigError(fieldPath(e.Namespace()), "%s", describe(e))
}

// fieldPath drops the root type from a namespace: "Config.Skins.holeValue"
// becomes "skins.holeValue".
func fieldPath(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	head, tail, _ := strings.Cut(rest, ".")
	head = strings.ToLower(head)
	if tail == "" {
		return head
	}
	return head + "." + tail
}

func describe(e playground.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "betkind":
		return fmt.Sprintf("unknown kind %q", e.Value())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte", "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "lte", "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "unique":
		return "has duplicates"
	default:
		return "is invalid"
	}
}
