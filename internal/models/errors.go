package models

import (
	"errors"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrInvalidJobID       = errors.New("invalid job id")
	ErrUnknownSettingKey  = errors.New("unknown setting key")
	ErrServiceUnavailable = errors.New("service unavailable")

	ErrOCRFailed       = errors.New("ocr failed")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)
