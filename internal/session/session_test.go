package session

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"canonical lowercase", "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d", false},
		{"uppercase accepted", "A1B2C3D4-E5F6-4A7B-8C9D-0E1F2A3B4C5D", false},
		{"mixed case accepted", "a1B2c3D4-e5F6-4a7B-8c9D-0e1F2a3B4c5D", false},
		{"empty", "", true},
		{"missing dashes", "a1b2c3d4e5f64a7b8c9d0e1f2a3b4c5d", true},
		{"urn form rejected", "urn:uuid:a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d", true},
		{"braced form rejected", "{a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d}", true},
		{"too short", "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5", true},
		{"non-hex characters", "g1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d", true},
		{"garbage", "not-a-session-id", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ValidateID(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidID) {
					t.Fatalf("ValidateID(%q) error = %v, want ErrInvalidID", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateID(%q) = %v", tt.raw, err)
			}
			if id == uuid.Nil {
				t.Error("ValidateID returned nil UUID for valid input")
			}
		})
	}
}

func TestResolveID(t *testing.T) {
	t.Run("empty input mints", func(t *testing.T) {
		id, minted, err := ResolveID("")
		if err != nil {
			t.Fatalf("ResolveID(\"\") = %v", err)
		}
		if !minted {
			t.Error("minted = false, want true")
		}
		// Minted IDs must round-trip through our own validator.
		if _, err := ValidateID(id.String()); err != nil {
			t.Errorf("minted ID %q fails validation: %v", id, err)
		}
	})

	t.Run("valid input passes through", func(t *testing.T) {
		raw := "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
		id, minted, err := ResolveID(raw)
		if err != nil {
			t.Fatalf("ResolveID(%q) = %v", raw, err)
		}
		if minted {
			t.Error("minted = true, want false")
		}
		if id.String() != raw {
			t.Errorf("id = %q, want %q", id, raw)
		}
	})

	t.Run("malformed input rejected", func(t *testing.T) {
		_, _, err := ResolveID("nope")
		if !errors.Is(err, ErrInvalidID) {
			t.Fatalf("ResolveID error = %v, want ErrInvalidID", err)
		}
	})
}
