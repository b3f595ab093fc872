package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newJWT(t *testing.T, exp time.Time, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": sub,
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Could not sign test JWT: %s", err)
	}
	return s
}

func newStore(t *testing.T, env map[string]string) *Store {
	return &Store{
		Dir:    filepath.Join(t.TempDir(), ".todo"),
		Getenv: func(k string) string { return env[k] },
	}
}

func TestToken(t *testing.T) {
	tests := map[string]struct {
		env            map[string]string
		saved          string
		expectedToken  string
		expectedSource string
		expectedNil    bool
	}{
		"logged out": {
			expectedNil: true,
		},
		"env wins": {
			env:            map[string]string{EnvToken: "Bearer from-env"},
			saved:          "from-file",
			expectedToken:  "from-env",
			expectedSource: "env",
		},
		"file": {
			saved:          "bearer from-file",
			expectedToken:  "from-file",
			expectedSource: "file",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, tt.env)
			if tt.saved != "" {
				if _, err := s.Save(tt.saved); err != nil {
					t.Fatalf("Save failed: %s", err)
				}
			}
			ti, err := s.Token()
			if err != nil {
				t.Fatalf("Token failed: %s", err)
			}
			if tt.expectedNil {
				if ti != nil {
					t.Fatalf("Expected no token, got %+v", ti)
				}
				return
			}
			if ti == nil || ti.Token != tt.expectedToken || ti.Source != tt.expectedSource {
				t.Errorf("Unexpected token info %+v", ti)
			}
		})
	}
}

func TestSaveRecordsJWTExpiry(t *testing.T) {
	s := newStore(t, nil)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	ti, err := s.Save(newJWT(t, exp, "user-1"))
	if err != nil {
		t.Fatalf("Save failed: %s", err)
	}
	if ti.ExpiresAt == nil || !ti.ExpiresAt.Equal(exp) {
		t.Errorf("Expected expiry %s, got %v", exp, ti.ExpiresAt)
	}
	if ti.Expired(time.Now()) {
		t.Errorf("Fresh token reported as expired")
	}
	if !ti.Expired(exp.Add(time.Second)) {
		t.Errorf("Token not expired after exp")
	}

	info, err := os.Stat(filepath.Join(s.Dir, credFileName))
	if err != nil {
		t.Fatalf("Credentials file missing: %s", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("Expected 0600 credentials, got %o", perm)
	}
}

func TestSaveOpaqueToken(t *testing.T) {
	ti, err := newStore(t, nil).Save("opaque-token")
	if err != nil {
		t.Fatalf("Save failed: %s", err)
	}
	if ti.ExpiresAt != nil {
		t.Errorf("Opaque token got an expiry: %v", ti.ExpiresAt)
	}
}

func TestSaveEmpty(t *testing.T) {
	if _, err := newStore(t, nil).Save("   "); err == nil {
		t.Fatal("Expected an error for an empty token")
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t, nil)
	if err := s.Delete(); err != nil {
		t.Fatalf("Deleting missing credentials failed: %s", err)
	}
	s.Save("abc")
	if err := s.Delete(); err != nil {
		t.Fatalf("Delete failed: %s", err)
	}
	if ti, _ := s.Token(); ti != nil {
		t.Errorf("Expected logged out after delete, got %+v", ti)
	}
}

func TestClaims(t *testing.T) {
	claims, err := Claims(newJWT(t, time.Now().Add(time.Minute), "user-7"))
	if err != nil {
		t.Fatalf("Claims failed: %s", err)
	}
	if claims["sub"] != "user-7" {
		t.Errorf(`Expected sub "user-7", got %v`, claims["sub"])
	}
	if _, err := Claims("not.a.jwt"); err == nil {
		t.Errorf("Expected an error for a malformed token")
	}
}
