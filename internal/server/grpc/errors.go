package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/filevault/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// codeOf maps service errors to gRPC status codes. Anything unrecognised is
// Internal.
func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, common.ErrQuotaExceeded):
		return codes.ResourceExhausted
	case errors.Is(err, common.ErrDuplicateName), errors.Is(err, common.ErrUserExists):
		return codes.AlreadyExists
	case errors.Is(err, common.ErrInfected), errors.Is(err, common.ErrSettingsMissing), errors.Is(err, common.ErrTooLarge):
		return codes.FailedPrecondition
	case errors.Is(err, common.ErrScanUnavailable), errors.Is(err, common.ErrUnavailable):
		return codes.Unavailable
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrSessionNotFound):
		return codes.NotFound
	case errors.Is(err, common.ErrEncryptionParamsMissing), errors.Is(err, common.ErrCorruptPayload):
		return codes.DataLoss
	case errors.Is(err, common.ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, common.ErrInvalidArgument), errors.Is(err, common.ErrInvalidMove):
		return codes.InvalidArgument
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return codes.Unauthenticated
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// statusError converts err for the wire. Internal and data-loss failures
// are logged; internal details are not returned to the client.
func (s *GRPCServer) statusError(ctx context.Context, op string, err error) error {
	code := codeOf(err)
	switch code {
	case codes.Internal:
		s.logger.Error(ctx, op+" failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	case codes.DataLoss:
		s.logger.Error(ctx, op+" integrity failure", "error", err)
	case codes.Unavailable:
		s.logger.Warn(ctx, op+" dependency unavailable", "error", err)
	}
	return status.Error(code, err.Error())
}
