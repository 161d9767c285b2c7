//go:build !protogen

package directory

import (
	"log/slog"
	"time"
)

// NewUserDirectoryProvider returns the HTTP-backed directory in default
// builds; the gRPC client needs generated protos and lives behind the
// protogen tag.
func NewUserDirectoryProvider(logger *slog.Logger, baseURL, grpcAddr string) (Provider, error) {
	_ = grpcAddr
	return NewHTTPProvider(baseURL, 3*time.Second, logger), nil
}
