package middleware

import (
	"github.com/Baltarist/Perscrum-sub000/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Tier names come from the payment flow; reject anything unknown early.
	v.RegisterValidation("tier", func(fl validator.FieldLevel) bool {
		switch models.SubscriptionTier(fl.Field().String()) {
		case models.TierFree, models.TierPro, models.TierEnterprise:
			return true
		}
		return false
	})
	return v
}

// Helper function used inside handlers:
func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}
