package security

import (
	"testing"
	"time"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatalf("hash must not equal plaintext")
	}
	if !VerifyPassword(hash, "correct horse battery staple") {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestUserTokenRoundTrip(t *testing.T) {
	signed, err := IssueUserToken("test-secret", time.Hour, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, errParse := ParseUserToken("test-secret", signed)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected user id 42, got %d", claims.UserID)
	}
}

func TestParseUserToken_WrongSecret(t *testing.T) {
	signed, err := IssueUserToken("test-secret", time.Hour, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseUserToken("other-secret", signed); errParse == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestParseUserToken_Expired(t *testing.T) {
	signed, err := IssueUserToken("test-secret", -time.Minute, 42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseUserToken("test-secret", signed); errParse == nil {
		t.Fatalf("expected parse failure for expired token")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	signed, err := IssueAdminToken("test-secret", time.Hour, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, errParse := ParseAdminToken("test-secret", signed)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.AdminID != 7 {
		t.Fatalf("expected admin id 7, got %d", claims.AdminID)
	}
}

func TestAdminTokenNotValidAsUserToken(t *testing.T) {
	signed, err := IssueAdminToken("test-secret", time.Hour, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, errParse := ParseUserToken("test-secret", signed); errParse == nil {
		t.Fatalf("expected admin token to be rejected as user token")
	}
}

func TestValidateTOTP_EmptyInputs(t *testing.T) {
	if ValidateTOTP("", "123456") {
		t.Fatalf("expected empty secret to fail")
	}
	if ValidateTOTP("JBSWY3DPEHPK3PXP", "") {
		t.Fatalf("expected empty code to fail")
	}
}
