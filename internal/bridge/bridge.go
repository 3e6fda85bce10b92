// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package bridge carries gateway operations over gRPC. The Server exposes a
// Backend (normally *gateway.Gateway) as the uidb.Gateway service; the grpcclient
// package dials it and implements Backend again, so callers can switch between an
// in-process gateway and a remote one without other changes.
//
// The upstream dispatcher authenticates principals; the server trusts the
// principal passed in the x-uidb-principal metadata entry.
package bridge

import (
	"context"
	"time"

	"uidb/gateway/internal/bridge/grpcclient"
	"uidb/gateway/internal/gateway"
	"uidb/gateway/internal/profile"
)

// Backend is the operation surface shared by the local gateway and the remote client.
type Backend interface {
	Dispatch(ctx context.Context, principal string, req gateway.Request) (*gateway.Result, error)
	Connect(ctx context.Context, p profile.ConnectionProfile) error
	Profile(ctx context.Context, principal string) (profile.ConnectionProfile, error)
	Disconnect(ctx context.Context, principal string) error
}

var (
	_ Backend = (*gateway.Gateway)(nil)
	_ Backend = (*grpcclient.Client)(nil)
)

// Remote dials a bridge server at addr.
func Remote(ctx context.Context, addr string, insecure bool) (*grpcclient.Client, error) {
	return grpcclient.Dial(ctx, addr, grpcclient.Options{Insecure: insecure, Timeout: 10 * time.Second})
}
