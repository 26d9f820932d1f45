package api

import (
	"context"
	"errors"

	"shareit/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			current := interceptors[i]
			next := chained
			chained = func(currentCtx context.Context, currentReq any) (any, error) {
				return current(currentCtx, currentReq, info, next)
			}
		}
		return chained(ctx, req)
	}
}

// ErrorUnaryInterceptor переводит доменные ошибки в gRPC-статусы
func ErrorUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, grpcError(err)
		}
		return resp, nil
	}
}

func grpcError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	var derr *domain.Error
	msg := "internal error"
	if errors.As(err, &derr) {
		msg = derr.Message
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, msg)
	case errors.Is(err, domain.ErrInvalidData):
		return status.Error(codes.InvalidArgument, msg)
	case errors.Is(err, domain.ErrConflict):
		return status.Error(codes.AlreadyExists, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}
