// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Flag defaults.
//  2. GOPHAUTH_SERVER, GOPHAUTH_TRANSPORT and GOPHAUTH_TOKEN.
//  3. Flags given on the command line.
//
// Supported flags
//
//	--server string      base URL (http) or host:port (grpc) of the server
//	--transport string   http or grpc
//	--token string       session token for protected commands
package config
