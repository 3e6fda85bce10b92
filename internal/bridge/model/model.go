// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines the wire model shared by the bridge server and client.
// Messages are google.protobuf.Struct values, so no generated code is needed; this
// package owns the method names, the principal metadata key, the mapping between
// gateway error kinds and gRPC status codes, and the conversion of requests and
// results to and from Structs.
package model

import (
	"google.golang.org/grpc/codes"

	gwerrors "uidb/gateway/internal/errors"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "uidb.Gateway"

// Unary method names.
const (
	MethodDispatch   = "Dispatch"
	MethodConnect    = "Connect"
	MethodProfile    = "Profile"
	MethodDisconnect = "Disconnect"
)

// PrincipalKey is the metadata key carrying the authenticated principal.
const PrincipalKey = "x-uidb-principal"

// FullMethod returns the /service/method path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// CodeFor maps an error kind onto a gRPC status code.
func CodeFor(kind gwerrors.Kind) codes.Code {
	switch kind {
	case gwerrors.NotFound:
		return codes.NotFound
	case gwerrors.DuplicateTable:
		return codes.AlreadyExists
	case gwerrors.ValidationError:
		return codes.InvalidArgument
	case gwerrors.ConnectionError:
		return codes.Unavailable
	case gwerrors.ExecutionError:
		return codes.Aborted
	case gwerrors.NoMatch:
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// KindFor is the inverse of CodeFor, used when a status carries no detail.
func KindFor(code codes.Code) gwerrors.Kind {
	switch code {
	case codes.NotFound:
		return gwerrors.NotFound
	case codes.AlreadyExists:
		return gwerrors.DuplicateTable
	case codes.InvalidArgument:
		return gwerrors.ValidationError
	case codes.Unavailable, codes.DeadlineExceeded:
		return gwerrors.ConnectionError
	case codes.Aborted:
		return gwerrors.ExecutionError
	case codes.FailedPrecondition:
		return gwerrors.NoMatch
	default:
		return gwerrors.Internal
	}
}
