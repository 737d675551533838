package validator

import (
	"errors"
	"fmt"
	"showings/pkg/logger"
	"showings/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ShowingValidator checks field-level rules. Window rules (ordering, duration bounds,
// start in the past) belong to the service because they map to INVALID_RANGE.
type ShowingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewShowingValidator(log *logger.Logger) *ShowingValidator {
	log.Info("Showing validator initialized successfully")

	return &ShowingValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *ShowingValidator) ValidateRequest(req *model.ShowingRequest) error {
	return v.validateStruct(req)
}

func (v *ShowingValidator) ValidateReschedule(req *model.RescheduleRequest) error {
	return v.validateStruct(req)
}

func (v *ShowingValidator) Validate(showing *model.Showing) error {
	return v.validateStruct(showing)
}

func (v *ShowingValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "e164":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +972501234567)", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
