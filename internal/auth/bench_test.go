package auth

import (
	"testing"
	"time"
)

// ─── Password hashing (Argon2id, slow on purpose) ───────────────

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HashPassword("correct-horse-battery-staple") //nolint:errcheck // benchmark
	}
}

func BenchmarkVerifyPassword(b *testing.B) {
	hash, err := HashPassword("correct-horse-battery-staple")
	if err != nil {
		b.Fatalf("HashPassword: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		VerifyPassword("correct-horse-battery-staple", hash) //nolint:errcheck // benchmark
	}
}

// ─── JWT tokens (per-request hot path) ──────────────────────────────

func BenchmarkParseToken(b *testing.B) {
	user := &User{ID: "usr-bench", Username: "bench", Role: RoleAdmin}
	secret := "benchmark-secret-key-32-bytes-xx"

	token, err := GenerateAccessToken(user, secret, time.Hour)
	if err != nil {
		b.Fatalf("GenerateAccessToken: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseToken(token, secret) //nolint:errcheck // benchmark
	}
}
