package academic

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/yedirenklicinar/akademi/core"
)

var (
	outcomeCodeTag   = "outcomecode"
	outcomeCodeText  = "invalid outcome code"
	outcomeCodeRegex = regexp.MustCompile(`^[\w.-]+$`)
)

// InitValidators registers the academic hierarchy validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(outcomeCodeTag, outcomeCodeValidation)
	core.RegisterCustomTranslation(validate, translator, outcomeCodeTag, outcomeCodeText)
}

// outcomeCodeValidation allows curriculum codes like "M7.1.1"; letters,
// digits, underscores, dots and dashes only.
func outcomeCodeValidation(fl validator.FieldLevel) bool {
	return outcomeCodeRegex.MatchString(fl.Field().String())
}
