package validation

import (
	"reflect"
	"regexp"
	"strings"

	"marketplace/internal/models"
	"marketplace/pkg/passwords"
	"marketplace/pkg/usernames"

	"github.com/go-playground/validator/v10"
)

var otpRe = regexp.MustCompile(`^[0-9]{6}$`)

// New returns a validator that reports json field names and knows the
// marketplace-specific tags: role, username, strongpassword and otp.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	must(v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	}))
	must(v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernames.Valid(usernames.Normalize(fl.Field().String()))
	}))
	must(v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return passwords.Strong(fl.Field().String())
	}))
	must(v.RegisterValidation("otp", func(fl validator.FieldLevel) bool {
		return otpRe.MatchString(fl.Field().String())
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
