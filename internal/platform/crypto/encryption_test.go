package crypto

import (
	"bytes"
	"strings"
	"testing"
)

const testKeyHex = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !svc.Configured() {
		t.Fatal("expected service to be configured")
	}

	plain := []byte("0001234567890")
	sealed, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(sealed, plain) {
		t.Fatal("ciphertext should differ from plaintext")
	}

	got, err := svc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("round trip mismatch: got %q want %q", got, plain)
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	svc, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := svc.EncryptString("12.345.678.9-012.345")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xff

	if _, err := svc.Decrypt(sealed); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
}

func TestUnconfiguredPassthrough(t *testing.T) {
	svc, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if svc.Configured() {
		t.Fatal("expected unconfigured service")
	}

	plain := []byte("plain value")
	sealed, err := svc.Encrypt(plain)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if !bytes.Equal(sealed, plain) {
		t.Fatal("unconfigured encrypt should pass value through")
	}
}

func TestNewRejectsShortKey(t *testing.T) {
	if _, err := New("too-short"); err == nil {
		t.Fatal("expected error for short key")
	} else if !strings.Contains(err.Error(), "32 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEmptyValues(t *testing.T) {
	svc, err := New(testKeyHex)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sealed, err := svc.EncryptString("")
	if err != nil || sealed != nil {
		t.Fatalf("EncryptString empty: got %v, %v", sealed, err)
	}
	plain, err := svc.DecryptString(nil)
	if err != nil || plain != "" {
		t.Fatalf("DecryptString nil: got %q, %v", plain, err)
	}
}
