package common

// AuthorizationHeaderName is the HTTP header (and lower-cased gRPC metadata
// key) that carries the access token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// DefaultRole is assigned when a registration does not name a role.
const DefaultRole = "user"
