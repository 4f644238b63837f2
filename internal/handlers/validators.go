package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
)

// RegisterBindingValidators installs the custom `bloodgroup` and `rhfactor`
// binding tags on gin's validator engine.
func RegisterBindingValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterValidation("bloodgroup", func(fl validator.FieldLevel) bool {
		switch domain.BloodGroup(fl.Field().String()) {
		case domain.GroupA, domain.GroupB, domain.GroupAB, domain.GroupO:
			return true
		}
		return false
	})
	v.RegisterValidation("rhfactor", func(fl validator.FieldLevel) bool {
		switch domain.RhFactor(fl.Field().String()) {
		case domain.RhPositive, domain.RhNegative:
			return true
		}
		return false
	})
}
