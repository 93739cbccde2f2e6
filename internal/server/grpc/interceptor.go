package grpc

import (
	"context"
	"runtime/debug"

	"github.com/dmitrijs2005/gophauth/internal/common"
	pb "github.com/dmitrijs2005/gophauth/internal/proto"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// metadata keys are lower-cased on the wire
const authorizationKey = "authorization"

var protectedMethods = map[string]bool{
	pb.MethodWhoAmI: true,
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(authorizationKey); len(values) > 0 {
			header = values[0]
		}
	}

	var id *models.Identity
	raw, err := auth.BearerToken(header)
	if err == nil {
		id, err = s.verifier.Verify(raw)
	}
	s.metrics.TokenVerification(err)

	if err != nil {
		s.logger.Debug(ctx, "rejected call", "method", info.FullMethod, "reason", err)
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	return handler(auth.WithIdentity(ctx, id), req)
}

func (s *GRPCServer) recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "panic in handler", "method", info.FullMethod, "panic", r, "stack", string(debug.Stack()))
			resp, err = nil, status.Error(codes.Internal, common.ErrorInternal.Error())
		}
	}()
	return handler(ctx, req)
}
