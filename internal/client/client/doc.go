// Package client contains the client-side API for gophauth.
//
// The Client interface covers registration, login, identity lookup and user
// listing. HTTPClient talks to the JSON API; GRPCClient talks to
// gophauth.v1.AuthService and supports everything except user listing.
// Both keep the token returned by Login and present it on later calls.
//
// Failures are reported as the sentinel errors in errors.go so callers can
// match them with errors.Is regardless of the transport.
package client
