//go:build protogen

package directory

import (
	"context"
	"log/slog"
	"time"

	"github.com/mrogowski01/rentacar/libs/grpcx"
	userv1 "github.com/mrogowski01/rentacar/protos/gen/user/v1"
)

type grpcProvider struct {
	client userv1.UserDirectoryClient
}

// NewUserDirectoryProvider prefers the gRPC directory when an address is
// configured, falling back to HTTP when the dial fails.
func NewUserDirectoryProvider(logger *slog.Logger, baseURL, grpcAddr string) (Provider, error) {
	if grpcAddr == "" {
		return NewHTTPProvider(baseURL, 3*time.Second, logger), nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpcx.Dial(ctx, grpcAddr, grpcx.DialOptions{Timeout: 5 * time.Second})
	if err != nil {
		logger.Warn("grpc user directory unavailable, using http", "err", err)
		return NewHTTPProvider(baseURL, 3*time.Second, logger), nil
	}

	logger.Info("grpc user directory enabled", "addr", grpcAddr)
	return &grpcProvider{client: userv1.NewUserDirectoryClient(conn)}, nil
}

func (p *grpcProvider) UserEmail(ctx context.Context, userID string) (string, error) {
	resp, err := p.client.GetUserEmail(ctx, &userv1.UserEmailRequest{UserId: userID})
	if err != nil {
		return "", err
	}
	return resp.GetEmail(), nil
}
