package http

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// requestValidator returns the shared validator instance. validator caches
// struct metadata internally, so one instance serves all handlers.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// invalidFields runs struct validation and returns the JSON field names that
// failed, in declaration order. Nil means the request is valid.
func invalidFields(req any) []string {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"request"}
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Field() yields the Go name; lower-case the first rune to match
		// the camelCase JSON tags used by the DTOs.
		name := fe.Field()
		fields = append(fields, strings.ToLower(name[:1])+name[1:])
	}
	return fields
}
