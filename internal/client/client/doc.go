// Package client talks to the shopkeeper AuthService over gRPC.
//
// GRPCClient keeps the session token returned by Register or SignIn and
// attaches it to every later call through a unary interceptor. gRPC status
// codes are mapped to the sentinel errors in errors.go so callers can use
// errors.Is without importing grpc.
package client
