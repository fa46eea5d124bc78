package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-chars!"

func TestIssueAndParseToken(t *testing.T) {
	now := time.Now()
	token, expires, err := IssueToken("operator", RoleOperator, testSecret, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if token == "" {
		t.Fatal("IssueToken() returned empty token")
	}
	if !expires.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("expires = %v, want %v", expires, now.Add(15*time.Minute))
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "operator" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "operator")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	now := time.Now()
	_, expires, err := IssueToken("operator", RoleViewer, testSecret, 0, now)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if got := expires.Sub(now); got != time.Hour {
		t.Errorf("default TTL = %v, want 1h", got)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	valid, _, err := IssueToken("operator", RoleOperator, testSecret, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	expired, _, err := IssueToken("operator", RoleOperator, testSecret, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	badRole, _, err := IssueToken("operator", Role("root"), testSecret, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	noSubject, _, err := IssueToken("", RoleOperator, testSecret, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "operator", Issuer: "afkloop"},
		Role:             RoleOperator,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "another-secret-key-of-enough-length"},
		{"expired", expired, testSecret},
		{"unknown role", badRole, testSecret},
		{"missing subject", noSubject, testSecret},
		{"alg none", none, testSecret},
		{"garbage", "not-a-valid-jwt", testSecret},
		{"empty", "", testSecret},
		{"two segments", "abc.def", testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestRoles(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleViewer, PermStatusRead, true},
		{RoleViewer, PermRunControl, false},
		{RoleOperator, PermStatusRead, true},
		{RoleOperator, PermRunControl, true},
		{Role("guest"), PermStatusRead, false},
	}
	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%q, %q) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}

	if _, ok := ParseRole("operator"); !ok {
		t.Error("ParseRole(operator) ok = false, want true")
	}
	if _, ok := ParseRole("admin"); ok {
		t.Error("ParseRole(admin) ok = true, want false")
	}
}
