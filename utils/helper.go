package utils

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)
	for _, fieldError := range validationErrors {
		field := fieldError.Field()
		tag := fieldError.Tag()
		errorResponse[field] = "failed validation: " + tag
	}

	return errorResponse
}

// StartOfMonth returns midnight UTC on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NormalizeTag upper-cases and trims an animal tag for matching.
func NormalizeTag(tag string) string {
	return strings.ToUpper(strings.TrimSpace(tag))
}
