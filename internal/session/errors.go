package session

import (
	"context"
	"errors"

	"github.com/wanterio/wanterio-backend/pkg/backend"
	pkgerrors "github.com/wanterio/wanterio-backend/pkg/errors"
	"github.com/wanterio/wanterio-backend/pkg/security"
)

func timeoutError(err error) error {
	if err == nil {
		err = context.DeadlineExceeded
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "backend call timed out")
}

// mapIdentityError turns identity provider failures into typed errors with a
// message fit for the user.
func mapIdentityError(err error) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "Invalid login credentials")
	case errors.Is(err, backend.ErrEmailTaken):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "User already registered")
	case errors.Is(err, security.ErrPasswordTooShort):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case backend.IsNotConfigured(err):
		return pkgerrors.Wrap(pkgerrors.CodeNotConfigured, err, "backend not configured")
	case errors.Is(err, context.DeadlineExceeded):
		return timeoutError(err)
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "authentication service error")
	}
}
