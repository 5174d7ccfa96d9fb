package services

import (
	"errors"

	"hiresync/internal/validator"
	"hiresync/pkg/apperrors"
)

func validationFailed(err error) error {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		return apperrors.ValidationError(ve.Errors)
	}
	return apperrors.ValidationError(err.Error())
}
