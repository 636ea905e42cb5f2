package middleware_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/spindle/pkg/persistence"
	"github.com/aretw0/spindle/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	if err != nil {
		t.Fatalf("NewPIIMiddleware failed: %v", err)
	}
	codec := persistence.Chain(persistence.JSON, mw)

	state := account{
		User:     "jdoe",
		Password: "secret123",
		Details:  map[string]string{"address": "123 St", "ssn_number": "999-99-9999"},
		Tags:     []map[string]any{{"admin_password": "root"}},
	}

	data, err := codec.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	if state.Password != "secret123" || state.Details["ssn_number"] != "999-99-9999" {
		t.Error("Middleware modified the original State")
	}
	for _, secret := range []string{"secret123", "999-99-9999", "root"} {
		if bytes.Contains(data, []byte(secret)) {
			t.Errorf("Expected %q to be masked in %s", secret, data)
		}
	}

	var loaded account
	if err := codec.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if loaded.User != "jdoe" || loaded.Details["address"] != "123 St" {
		t.Errorf("Expected safe fields to survive, got %+v", loaded)
	}
	if loaded.Password != middleware.Mask || loaded.Details["ssn_number"] != middleware.Mask {
		t.Errorf("Expected masked fields, got %+v", loaded)
	}
}

func TestPIIMiddleware_WithEncryption(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{"^password$"})
	if err != nil {
		t.Fatal(err)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	codec := persistence.Chain(persistence.JSON, pii, enc)

	data, err := codec.Marshal(account{User: "jdoe", Password: "hunter2"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var loaded account
	if err := codec.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if loaded.User != "jdoe" || loaded.Password != middleware.Mask {
		t.Errorf("Unexpected State %+v", loaded)
	}
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]string{"("}); err == nil {
		t.Error("Expected error for invalid pattern")
	}
}
