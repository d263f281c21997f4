package services

import (
	"errors"

	"github.com/phisch84/domain-repository/internal/core/domain"
	"github.com/phisch84/domain-repository/internal/logger"
)

// reportError hands err to obs and returns err. A panicking observer is
// logged and otherwise ignored.
func reportError(obs domain.ErrorObserver, err error) (reported error) {
	if obs == nil || err == nil {
		return err
	}
	reported = err
	defer func() {
		if p := recover(); p != nil {
			logger.Warn("error observer panicked: %v", p)
		}
	}()
	obs.OnDomainError(err)
	return err
}

// wrapFailure applies the propagation policy shared by repositories and
// units of work: store failures, precondition violations, lookups and
// errors already in the domain family pass through; anything else becomes
// a DomainError that is reported to obs.
func wrapFailure(obs domain.ErrorObserver, op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsStoreError(err) || domain.IsPrecondition(err) ||
		errors.Is(err, domain.ErrNotFound) || domain.IsDomainFamily(err) {
		return err
	}
	return reportError(obs, &domain.DomainError{Op: op, Err: err})
}
