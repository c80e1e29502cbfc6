package handler

import (
	"github.com/go-playground/validator/v10"

	"github.com/ugcstudio/api/internal/model"
)

// NewValidator returns a validator with the ugcmodel tag registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ugcmodel", func(fl validator.FieldLevel) bool {
		_, ok := model.LookupModel(model.ModelID(fl.Field().String()))
		return ok
	})
	return v
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
