package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// toStatus переводит доменную ошибку в gRPC-статус. Текст внутренних ошибок
// клиенту не отдаётся.
func toStatus(logger *log.Entry, operation string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codeOf(err)
	entry := logger.WithError(err).WithField("operation", operation)
	switch code {
	case codes.Internal, codes.Unavailable:
		entry.Error("request failed")
	default:
		entry.Debug("request rejected")
	}

	if code == codes.Internal {
		return status.Error(code, "internal error")
	}
	return status.Error(code, err.Error())
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrPaymentNotAllowed):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrOrderVersionConflict):
		return codes.Aborted
	case errors.Is(err, domain.ErrOrderAlreadyExists):
		return codes.AlreadyExists
	case errors.Is(err, domain.ErrInfrastructure):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
