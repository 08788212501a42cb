package domain

import (
	"github.com/go-playground/validator/v10"

	"idsync.io/idsync/internal/ldapdn"
)

// validate is the process-wide validator instance.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// groupname enforces the remote naming grammar on outbound payloads.
	_ = v.RegisterValidation("groupname", func(fl validator.FieldLevel) bool {
		return ldapdn.ValidGroupName(fl.Field().String())
	})
	return v
}

// Validate checks a model or payload against its declared constraints.
func Validate(v any) error {
	return validate.Struct(v)
}
