package crypto

import (
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "ops-password-123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 70)}, // близко к лимиту 72
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			if err != nil {
				t.Fatalf("HashPassword failed: %v", err)
			}
			if hash == "" {
				t.Error("hash should not be empty")
			}
			if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
				t.Errorf("hash should start with bcrypt prefix, got: %s", hash[:10])
			}
			if hash == tt.password {
				t.Error("hash should not equal password")
			}
		})
	}
}

func TestHashPassword_Errors(t *testing.T) {
	if _, err := HashPassword(""); err != ErrEmptyPassword {
		t.Errorf("empty password: got error %v, want %v", err, ErrEmptyPassword)
	}

	if _, err := HashPassword(strings.Repeat("a", 73)); err != ErrPasswordTooLong {
		t.Errorf("long password: got error %v, want %v", err, ErrPasswordTooLong)
	}
}

func TestHashPassword_DifferentSalts(t *testing.T) {
	password := "samepassword"

	hash1, _ := HashPassword(password)
	hash2, _ := HashPassword(password)

	if hash1 == hash2 {
		t.Error("two hashes of the same password should differ")
	}
}

func TestVerifyPassword(t *testing.T) {
	password := "correctpassword"
	hash, _ := HashPassword(password)

	if err := VerifyPassword(password, hash); err != nil {
		t.Errorf("correct password: got error %v, want nil", err)
	}

	if err := VerifyPassword("wrongpassword", hash); err != ErrPasswordMismatch {
		t.Errorf("wrong password: got error %v, want %v", err, ErrPasswordMismatch)
	}

	if err := VerifyPassword("", hash); err != ErrEmptyPassword {
		t.Errorf("empty password: got error %v, want %v", err, ErrEmptyPassword)
	}

	if err := VerifyPassword("password", ""); err != ErrInvalidHash {
		t.Errorf("empty hash: got error %v, want %v", err, ErrInvalidHash)
	}
}

func TestVerifyPassword_InvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"random string", "notahash"},
		{"truncated hash", "$2a$12$abc"},
		{"wrong format", "sha256:abcdef123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyPassword("password", tt.hash); err != ErrInvalidHash {
				t.Errorf("got error %v, want %v", err, ErrInvalidHash)
			}
		})
	}
}

func TestCheckPasswordMatch(t *testing.T) {
	password := "testpassword"
	hash, _ := HashPassword(password)

	if !CheckPasswordMatch(password, hash) {
		t.Error("expected true for correct password")
	}
	if CheckPasswordMatch("wrongpassword", hash) {
		t.Error("expected false for wrong password")
	}
	if CheckPasswordMatch("", hash) {
		t.Error("expected false for empty password")
	}
}
