// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package grpcclient provides a gRPC client for a remote uidb bridge server. It
// converts gateway requests and results to and from the Struct wire messages,
// carries the principal in request metadata and turns status errors back into
// gateway errors with their original kind.
package grpcclient

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"uidb/gateway/internal/bridge/model"
	gwerrors "uidb/gateway/internal/errors"
	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/profile"
)

// Options configures Dial.
type Options struct {
	// Insecure disables TLS, for loopback and test servers.
	Insecure bool
	// Timeout bounds every call. Zero means no client-side deadline.
	Timeout time.Duration
	// DialOptions are appended to the client's own options.
	DialOptions []grpc.DialOption
}

// Client calls a remote bridge server.
type Client struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

// Dial creates a client for addr. Without a port, 443 is used with TLS and 7420
// without.
func Dial(_ context.Context, addr string, opts Options) (*Client, error) {
	host := addr
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	target := addr
	if _, _, err := net.SplitHostPort(addr); err != nil {
		port := "443"
		if opts.Insecure {
			port = "7420"
		}
		target = net.JoinHostPort(addr, port)
	}

	creds := insecure.NewCredentials()
	if !opts.Insecure {
		creds = credentials.NewTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12})
	}
	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts.DialOptions...)

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.ConnectionError, "cannot create uidb client", err)
	}
	return &Client{conn: conn, timeout: opts.Timeout}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Dispatch runs req on the server for principal.
func (c *Client) Dispatch(ctx context.Context, principal string, req gateway.Request) (*gateway.Result, error) {
	in, err := model.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	out, err := c.invoke(ctx, principal, model.MethodDispatch, in)
	if err != nil {
		return nil, err
	}
	return model.DecodeResult(out)
}

// Connect registers p on the server. The password travels in the request, so use
// TLS for anything but loopback.
func (c *Client) Connect(ctx context.Context, p profile.ConnectionProfile) error {
	in, err := model.EncodeProfile(p)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, p.Principal, model.MethodConnect, in)
	return err
}

// Profile returns the stored profile of principal, without password.
func (c *Client) Profile(ctx context.Context, principal string) (profile.ConnectionProfile, error) {
	out, err := c.invoke(ctx, principal, model.MethodProfile, &structpb.Struct{})
	if err != nil {
		return profile.ConnectionProfile{}, err
	}
	return model.DecodeProfile(out)
}

// Disconnect removes the profile of principal.
func (c *Client) Disconnect(ctx context.Context, principal string) error {
	_, err := c.invoke(ctx, principal, model.MethodDisconnect, &structpb.Struct{})
	return err
}

func (c *Client) invoke(ctx context.Context, principal, method string, in *structpb.Struct) (*structpb.Struct, error) {
	ctx = metadata.AppendToOutgoingContext(ctx, model.PrincipalKey, principal)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, model.FullMethod(method), in, out); err != nil {
		return nil, fromStatus(err)
	}
	return out, nil
}

// fromStatus restores the gateway error carried by a status.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return gwerrors.Wrap(gwerrors.ConnectionError, "uidb server call failed", err)
	}
	for _, d := range st.Details() {
		s, ok := d.(*structpb.Struct)
		if !ok {
			continue
		}
		m := s.AsMap()
		kind, _ := m["kind"].(string)
		msg, _ := m["message"].(string)
		detail, _ := m["detail"].(string)
		return &gwerrors.E{Kind: gwerrors.Kind(kind), Message: msg, Detail: detail}
	}
	kind := model.KindFor(st.Code())
	if kind == gwerrors.ConnectionError {
		return gwerrors.Newf(gwerrors.ConnectionError, "cannot reach uidb server: %s", st.Message())
	}
	return gwerrors.New(kind, st.Message())
}
