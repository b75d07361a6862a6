package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/core/batch"
)

var validatorOnce sync.Once

// registerValidators adds labbook's rules to gin's validator.
func registerValidators() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("batchid", func(fl validator.FieldLevel) bool {
			return batch.WellFormed(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("register batchid validator: %v", err))
		}
	})
}

// bindError turns a binding failure into a validation error listing each
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(err, apperr.ErrValidation, "malformed request body")
	}

	fields := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "batchid":
			msg = "must look like 20260107-CM-01"
		case "datetime":
			msg = "must be a date like " + fe.Param()
		case "numeric":
			msg = "must be a number"
		default:
			msg = "failed " + fe.Tag()
		}
		fields[name] = msg
		msgs = append(msgs, name+" "+msg)
	}
	return apperr.WithFields(apperr.Derive(apperr.ErrValidation, strings.Join(msgs, "; ")), fields)
}
