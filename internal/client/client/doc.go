// Package client talks to the FileVault backend.
//
// GRPCClient manages the connection, attaches the access token obtained by
// Login to every call through a unary interceptor, switches large uploads to
// the chunked API and maps gRPC status codes to the sentinel errors in
// errors.go so callers can match them with errors.Is.
package client
