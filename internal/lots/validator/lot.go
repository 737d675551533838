package validator

import (
	"errors"
	"fmt"
	"showings/pkg/logger"
	"showings/pkg/model"
	"strings"

	"github.com/go-playground/validator/v10"
)

type LotValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewLotValidator(log *logger.Logger) *LotValidator {
	return &LotValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *LotValidator) Validate(lot *model.Lot) error {
	err := v.validate.Struct(lot)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	messages := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Field()))
		case "timezone":
			messages = append(messages, fmt.Sprintf("%s must be an IANA time zone (e.g., Asia/Jerusalem)", fe.Field()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
