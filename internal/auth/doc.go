// Package auth protects the control API.
//
// There is one operator. Their password lives in config as an Argon2id PHC
// hash; a correct password buys a short-lived HS256 JWT. Tokens carry a role:
//
//	viewer    status:read
//	operator  status:read, run:control
//
// Tokens are validated by signature and expiry only. There is no token
// store, so a leaked token stays valid until it expires; keep the TTL short.
package auth
