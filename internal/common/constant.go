// Package common contains shared constants and sentinel errors used across
// shopkeeper components.
package common

// AuthHeaderName is the HTTP header that carries the session token in both
// directions.
const AuthHeaderName = "X-Auth"

// AuthMetadataKey is the gRPC metadata key carrying the session token.
// gRPC metadata keys are lower case.
const AuthMetadataKey = "x-auth"

// PurposeAuth labels tokens that authenticate API requests. It is the only
// purpose issued today.
const PurposeAuth = "auth"
