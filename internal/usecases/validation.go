package usecases

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

// ValidateUUID accepts only the hyphenated 36 character form, in any case.
func ValidateUUID(rawUUID string) bool {
	if len(rawUUID) != 36 {
		return false
	}
	_, err := uuid.Parse(rawUUID)
	return err == nil
}

// NewValidator returns a validator that reports fields by their json names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterStructValidation(messageSendRules, models.MessageSend{})
	return v
}

// messageSendRules requires the payload each message type carries.
func messageSendRules(sl validator.StructLevel) {
	m := sl.Current().Interface().(models.MessageSend)
	switch m.Type {
	case models.MessageTypeText:
		if m.Content == nil || strings.TrimSpace(*m.Content) == "" {
			sl.ReportError(m.Content, "content", "Content", "required_if", "message_type text")
		}
	case models.MessageTypeImage, models.MessageTypeFile:
		if m.MediaURL == nil || strings.TrimSpace(*m.MediaURL) == "" {
			sl.ReportError(m.MediaURL, "media_url", "MediaURL", "required_if", "message_type "+string(m.Type))
		}
	}
}

func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fields := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		if fe.Param() != "" {
			fields[i] = fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param())
		} else {
			fields[i] = fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag())
		}
	}
	return fmt.Errorf("%w: invalid fields: %s", ErrValidation, strings.Join(fields, ", "))
}

// canonicalIDs validates the ids and returns them lowercased, so that
// spellings of the same id compare equal.
func canonicalIDs(ids []string, field string) ([]string, error) {
	res := make([]string, len(ids))
	for i, id := range ids {
		if !ValidateUUID(id) {
			return nil, fmt.Errorf("%w: invalid fields: %s (uuid)", ErrValidation, field)
		}
		res[i] = strings.ToLower(id)
	}
	return res, nil
}

// dedupe keeps the first occurrence of every id.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
