package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

var (
	std     *govalidator.Validate
	stdOnce sync.Once
)

// Setup registers the validator with English translations on Gin's binding engine.
// Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		configure(v)
	}
}

// configure applies the json tag names, translations and custom rules to v.
func configure(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("nonnegnum", nonNegativeNumber)

	// Register English translations.
	if trans == nil {
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
	}
	en_translations.RegisterDefaultTranslations(v, trans)
	v.RegisterTranslation("nonnegnum", trans,
		func(ut ut.Translator) error {
			return ut.Add("nonnegnum", "{0} must be a number greater than or equal to 0", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			t, _ := ut.T("nonnegnum", fe.Field())
			return t
		},
	)
}

// jsonNonNegNumber is the JSON number grammar without the minus sign.
var jsonNonNegNumber = regexp.MustCompile(`^(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// nonNegativeNumber accepts strings that are a finite JSON number >= 0, so
// the value can be sent upstream as a json.Number unchanged.
func nonNegativeNumber(fl govalidator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if !jsonNonNegNumber.MatchString(s) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// Struct validates v against its `validate` tags outside of a request and
// returns translated field errors, or nil.
func Struct(v interface{}) map[string]string {
	stdOnce.Do(func() {
		std = govalidator.New(govalidator.WithRequiredStructEnabled())
		configure(std)
	})
	if err := std.Struct(v); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
