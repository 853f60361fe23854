package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"todoitems/internal/core/domain"
	"todoitems/internal/core/model/request"
)

// Validator checks a raw todo payload. It is safe for concurrent use.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	english := en.New()
	uni := ut.New(english, english)

	translator, found := uni.GetTranslator("en")

	if !found {
		panic("translator en not found")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}

	v := &Validator{
		validate:   validate,
		translator: translator,
	}

	v.addCustomTranslations()

	return v
}

func (v *Validator) addCustomTranslations() {
	v.validate.RegisterTranslation("max", v.translator, func(ut ut.Translator) error {
		return ut.Add("max", "{0} must be at most {1} characters long", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("max", fe.Field(), fe.Param())
		return t
	})
}

// Validate coerces the raw payload into a TodoPayload and applies the field rules.
// Every violation results in domain.ErrInvalidRequestBody; the wrapped message lists them.
func (v *Validator) Validate(raw request.RawPayload) (request.TodoPayload, error) {
	var (
		payload  request.TodoPayload
		problems []string
	)

	name, err := stringField(raw, domain.FieldName)
	if err != nil {
		problems = append(problems, err.Error())
	} else if name != nil {
		payload.Name = *name
	}

	description, err := stringField(raw, domain.FieldDescription)
	if err != nil {
		problems = append(problems, err.Error())
	} else if description != nil && *description != "" {
		payload.Description = description
	}

	if value, ok := raw[domain.FieldCompleted]; ok && value != nil {
		completed, ok := ParseBool(value)

		if ok {
			payload.Completed = &completed
		} else {
			problems = append(problems, fmt.Sprintf("%s must be true or false", domain.FieldCompleted))
		}
	}

	if err := v.validate.Struct(payload); err != nil {
		problems = append(problems, v.translate(err)...)
	}

	if len(problems) > 0 {
		return request.TodoPayload{}, fmt.Errorf("%w: %s", domain.ErrInvalidRequestBody, strings.Join(problems, "; "))
	}

	return payload, nil
}

func (v *Validator) translate(err error) []string {
	var messages []string

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			messages = append(messages, fieldError.Translate(v.translator))
		}

		return messages
	}

	return []string{err.Error()}
}

// ParseBool interprets JSON booleans, the numbers 0 and 1 and the strings
// "0", "1", "true" and "false" as a boolean.
func ParseBool(value any) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case float64:
		return numberToBool(v)
	case int:
		return numberToBool(float64(v))
	case int64:
		return numberToBool(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return false, false
		}
		return numberToBool(f)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true":
			return true, true
		case "0", "false":
			return false, true
		}
	}

	return false, false
}

func numberToBool(f float64) (bool, bool) {
	switch f {
	case 0:
		return false, true
	case 1:
		return true, true
	}

	return false, false
}

// stringField returns the trimmed string under key, nil when it is absent or null.
func stringField(raw request.RawPayload, key string) (*string, error) {
	value, ok := raw[key]

	if !ok || value == nil {
		return nil, nil
	}

	s, ok := value.(string)

	if !ok {
		return nil, fmt.Errorf("%s must be a string", key)
	}

	s = strings.TrimSpace(s)

	return &s, nil
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]

	if name == "-" || name == "" {
		return field.Name
	}

	return name
}
