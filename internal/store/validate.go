package store

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"github.com/a3tai/mcp-lab-forms/internal/form"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	// custom validation tags
	documentIDTag = "docid"
	fieldTypeTag  = "fieldtype"

	documentIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,127}$`)
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(documentIDTag, func(fl validator.FieldLevel) bool {
		return ValidDocumentID(fl.Field().String())
	})
	_ = validate.RegisterValidation(fieldTypeTag, func(fl validator.FieldLevel) bool {
		return form.FieldType(fl.Field().String()).Valid()
	})

	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{documentIDTag, fieldTypeTag} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case documentIDTag:
		return fe.Field() + " must be a plain document identifier"
	case fieldTypeTag:
		return fe.Field() + " is not a supported field type"
	}
	return fe.Error()
}

// ValidDocumentID reports whether id can name a stored document
func ValidDocumentID(id string) bool {
	return documentIDPattern.MatchString(id) && !strings.Contains(id, "..")
}

// validateStruct runs the struct tags of v and flattens any failures into one
// readable error
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Namespace()+": "+fe.Translate(translator))
	}
	return errors.Wrap(ErrInvalidDocument, strings.Join(msgs, "; "))
}
