package integration

import (
	"fmt"

	"github.com/platewire/api/pkg/domain/shared"
)

var (
	// ErrIntegrationNotFound is returned when an integration does not exist
	// or is not visible to the caller.
	ErrIntegrationNotFound = fmt.Errorf("%w: integration not found", shared.ErrNotFound)

	// ErrIntegrationInactive is returned when dispatch resolves an
	// integration that exists but has been toggled off.
	ErrIntegrationInactive = fmt.Errorf("%w: integration is inactive", shared.ErrConflict)

	// ErrInvalidType is returned for an unknown integration type.
	ErrInvalidType = fmt.Errorf("%w: invalid integration type", shared.ErrValidation)

	// ErrInvalidEnvironment is returned for an unknown environment.
	ErrInvalidEnvironment = fmt.Errorf("%w: invalid environment", shared.ErrValidation)
)
