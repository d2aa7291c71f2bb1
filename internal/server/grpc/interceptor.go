package grpc

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/api"
	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

var publicMethods = map[string]bool{
	api.FullMethod(api.MethodRegister): true,
	api.FullMethod(api.MethodLogin):    true,
	api.FullMethod(api.MethodPing):     true,
}

func requiresToken(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+api.ServiceName+"/") && !publicMethods[fullMethod]
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !requiresToken(info.FullMethod) {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if accessToken == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, status.Error(codes.Unauthenticated, "token expired")
		}
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	return handler(context.WithValue(ctx, userIDKey, userID), req)
}

// userIDFromContext returns the caller set by the interceptor.
func userIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return userID, nil
}
