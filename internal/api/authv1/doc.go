// Package authv1 holds the generated code of the shopkeeper.auth.v1
// AuthService. The session token travels in the "x-auth" metadata key, not in
// the messages.
package authv1

//go:generate protoc -I .. --go_out=.. --go_opt=paths=source_relative --go-grpc_out=.. --go-grpc_opt=paths=source_relative authv1/auth.proto
