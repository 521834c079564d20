// Package auth provides authentication and authorisation for the panel API.
//
// It implements a 3-tier operator role model (viewer → operator → admin) with:
//   - Argon2id password hashing, shared with door lock credentials
//   - Short-lived HS256 JWT access tokens validated by signature only
//   - A static role-permission mapping (compile-time, no database lookup)
//   - An in-memory directory of operator accounts loaded from configuration
//
// Operator accounts are configuration, not data: they are read once at
// startup and never written back.
package auth
