package database

import (
	"testing"
)

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"visa", "visa"},
		{"100%", `100\%`},
		{"snake_case", `snake\_case`},
		{`back\slash`, `back\\slash`},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("newpassword123")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "newpassword123" {
		t.Fatal("password must not be stored in plaintext")
	}

	u := &User{Password: hash}
	if !VerifyPassword(u, "newpassword123") {
		t.Error("correct password should verify")
	}
	if VerifyPassword(u, "wrong") {
		t.Error("wrong password should not verify")
	}
	if VerifyPassword(nil, "newpassword123") {
		t.Error("nil user should not verify")
	}
	if VerifyPassword(&User{}, "") {
		t.Error("user without hash should not verify")
	}
}

func TestNullString(t *testing.T) {
	if NullString("") != nil {
		t.Error("empty string should map to NULL")
	}
	if got := NullString("x"); got == nil || *got != "x" {
		t.Errorf("NullString(x) = %v", got)
	}
	if StringValue(nil) != "" {
		t.Error("StringValue(nil) should be empty")
	}
}
