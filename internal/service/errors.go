package service

import (
	"context"
	"log/slog"

	"github.com/fjod/farmfresh/internal/domain"
)

// maxCartAttempts bounds the re-read and retry loop on a concurrent cart write.
const maxCartAttempts = 3

// internalError logs the cause and returns a fixed message to the caller.
func internalError(ctx context.Context, message string, err error) error {
	slog.ErrorContext(ctx, message, "error", err)
	return domain.Errorf(domain.ErrInternal, "%s", message)
}
