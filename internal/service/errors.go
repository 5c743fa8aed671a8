package service

import (
	"errors"

	"github.com/leadflow/backend/internal/pipeline"
	"github.com/leadflow/backend/internal/repository"
)

// Sentinel errors returned (wrapped) by every service. Handlers map them to
// problem responses with errors.Is.
var (
	ErrNotFound           = repository.ErrNotFound
	ErrForbidden          = errors.New("forbidden")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrStageRuleViolation = pipeline.ErrStageRule
	ErrUnauthorized       = errors.New("invalid credentials")
	ErrPendingApproval    = errors.New("account pending approval")
)
