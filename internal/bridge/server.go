// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package bridge

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"uidb/gateway/internal/bridge/model"
	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/logging"
)

// Server serves a Backend over gRPC.
type Server struct {
	backend Backend
	log     zerolog.Logger
	grpc    *grpc.Server
}

// NewServer creates a Server. Extra grpc.ServerOptions are appended to the
// server's own logging interceptor.
func NewServer(backend Backend, log zerolog.Logger, opts ...grpc.ServerOption) *Server {
	s := &Server{backend: backend, log: logging.Component(log, "bridge")}
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.logUnary)}, opts...)
	s.grpc = grpc.NewServer(opts...)
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve accepts connections on lis until ctx is cancelled, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.grpc.GracefulStop()
		case <-done:
		}
	}()
	s.log.Info().Str("addr", lis.Addr().String()).Msg("bridge listening")
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop stops the server immediately.
func (s *Server) Stop() { s.grpc.Stop() }

func (s *Server) dispatch(ctx context.Context, principal string, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := model.DecodeRequest(in)
	if err != nil {
		return nil, err
	}
	res, err := s.backend.Dispatch(ctx, principal, req)
	if err != nil {
		return nil, err
	}
	return model.EncodeResult(res)
}

func (s *Server) connect(ctx context.Context, principal string, in *structpb.Struct) (*structpb.Struct, error) {
	p, err := model.DecodeProfile(in)
	if err != nil {
		return nil, err
	}
	p.Principal = principal
	if err := s.backend.Connect(ctx, p); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"message": "Connection created successfully"})
}

func (s *Server) profile(ctx context.Context, principal string, _ *structpb.Struct) (*structpb.Struct, error) {
	p, err := s.backend.Profile(ctx, principal)
	if err != nil {
		return nil, err
	}
	p.Password = ""
	return model.EncodeProfile(p)
}

func (s *Server) disconnect(ctx context.Context, principal string, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.backend.Disconnect(ctx, principal); err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"message": "Connection removed"})
}

// principalFrom reads the principal from incoming metadata.
func principalFrom(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(model.PrincipalKey)
	if len(vals) == 0 || vals[0] == "" {
		return "", gwerrors.Newf(gwerrors.ValidationError, "missing %s metadata", model.PrincipalKey)
	}
	return vals[0], nil
}

// toStatus converts a gateway error into a gRPC status with the kind, message and
// masked driver detail attached as a Struct.
func toStatus(err error) error {
	var e *gwerrors.E
	if !gwerrors.As(err, &e) {
		e = gwerrors.Wrap(gwerrors.Internal, "internal error", err)
	}
	msg := logging.Mask(e.Message)
	st := status.New(model.CodeFor(e.Kind), string(e.Kind)+": "+msg)
	detail, derr := structpb.NewStruct(map[string]any{
		"kind":    string(e.Kind),
		"message": msg,
		"detail":  logging.Mask(e.Detail),
	})
	if derr != nil {
		return st.Err()
	}
	if withDetail, derr := st.WithDetails(detail); derr == nil {
		st = withDetail
	}
	return st.Err()
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	code := status.Code(err)
	ev := s.log.Debug()
	if code != codes.OK {
		ev = s.log.Warn()
	}
	ev.Str("method", info.FullMethod).Str("code", code.String()).Dur("duration", time.Since(start)).Msg("rpc")
	return resp, err
}

// handlerFunc is one unary method on the server.
type handlerFunc func(s *Server, ctx context.Context, principal string, in *structpb.Struct) (*structpb.Struct, error)

func unary(method string, call handlerFunc) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			handler := func(ctx context.Context, req any) (any, error) {
				principal, err := principalFrom(ctx)
				if err != nil {
					return nil, toStatus(err)
				}
				out, err := call(s, ctx, principal, req.(*structpb.Struct))
				if err != nil {
					return nil, toStatus(err)
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: model.FullMethod(method)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// gatewayService is the handler type the service descriptor is registered against.
type gatewayService interface {
	dispatch(ctx context.Context, principal string, in *structpb.Struct) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: model.ServiceName,
	HandlerType: (*gatewayService)(nil),
	Methods: []grpc.MethodDesc{
		unary(model.MethodDispatch, (*Server).dispatch),
		unary(model.MethodConnect, (*Server).connect),
		unary(model.MethodProfile, (*Server).profile),
		unary(model.MethodDisconnect, (*Server).disconnect),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "uidb/gateway.proto",
}
