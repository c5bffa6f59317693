package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewPasswordService_Cost(t *testing.T) {
	tests := []struct {
		name    string
		cost    int
		want    int
		wantErr bool
	}{
		{name: "zero selects default", cost: 0, want: DefaultCost},
		{name: "explicit", cost: 10, want: 10},
		{name: "too low", cost: bcrypt.MinCost - 1, wantErr: true},
		{name: "too high", cost: bcrypt.MaxCost + 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := NewPasswordService(tt.cost)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPasswordService(%d) error = %v", tt.cost, err)
			}
			if ps.cost != tt.want {
				t.Errorf("cost = %d, want %d", ps.cost, tt.want)
			}
		})
	}
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := NewPasswordServiceForTest()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")
	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_Length(t *testing.T) {
	ps := NewPasswordServiceForTest()

	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes)); err != nil {
		t.Errorf("Hash() rejected a %d-byte password: %v", MaxPasswordBytes, err)
	}
	if _, err := ps.Hash(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash() error = %v, want ErrPasswordTooLong", err)
	}
	// Multi-byte runes count in bytes, not characters.
	if _, err := ps.Hash(strings.Repeat("é", 37)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash() error = %v, want ErrPasswordTooLong for 74 bytes", err)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify(t *testing.T) {
	ps := NewPasswordServiceForTest()
	hash, err := ps.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		plaintext string
		want      error
	}{
		{name: "match", hash: hash, plaintext: "correct-horse"},
		{name: "mismatch", hash: hash, plaintext: "battery-staple", want: ErrPasswordInvalid},
		{name: "empty password", hash: hash, plaintext: "", want: ErrPasswordInvalid},
		{name: "no hash on account", hash: "", plaintext: "anything", want: ErrPasswordInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.plaintext)
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := NewPasswordServiceForTest()

	err := ps.Verify("not-a-bcrypt-hash", "password")
	if err == nil {
		t.Fatal("Verify() should fail for a malformed hash")
	}
	if errors.Is(err, ErrPasswordInvalid) {
		t.Error("a malformed hash is a storage problem, not a wrong password")
	}
}

func TestDummy_DoesNotPanic(t *testing.T) {
	ps := NewPasswordServiceForTest()
	ps.Dummy("whatever")
	ps.Dummy("again")
}
