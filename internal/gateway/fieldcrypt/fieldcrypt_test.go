package fieldcrypt

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
)

func testCodec(t *testing.T) *Codec {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return New(&key.PublicKey, key, "MerchantId")
}

func TestScalarRoundTrip(t *testing.T) {
	codec := testCodec(t)

	values := []any{"hello", "ORD-2026-001", 5000, 12.5, true, ""}
	for _, value := range values {
		ciphertext, err := codec.EncryptScalar(value)
		if err != nil {
			t.Fatalf("encrypt %v: %v", value, err)
		}
		if ciphertext == stringify(value) {
			t.Fatalf("ciphertext equals plaintext for %v", value)
		}

		plaintext, err := codec.DecryptScalar(ciphertext)
		if err != nil {
			t.Fatalf("decrypt %v: %v", value, err)
		}
		if plaintext != stringify(value) {
			t.Fatalf("roundtrip mismatch: got %q want %q", plaintext, stringify(value))
		}
	}
}

func TestDecryptNormalizesURLSpaces(t *testing.T) {
	codec := testCodec(t)

	ciphertext, err := codec.EncryptScalar("amount=5000")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	mangled := strings.ReplaceAll(ciphertext, "+", " ")

	plaintext, err := codec.DecryptScalar(mangled)
	if err != nil {
		t.Fatalf("decrypt mangled ciphertext: %v", err)
	}
	if plaintext != "amount=5000" {
		t.Fatalf("got %q", plaintext)
	}
}

func TestKeyMissing(t *testing.T) {
	codec := New(nil, nil, "MerchantId")

	if _, err := codec.EncryptScalar("x"); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
	if _, err := codec.DecryptScalar("x"); !errors.Is(err, ErrKeyMissing) {
		t.Fatalf("expected ErrKeyMissing, got %v", err)
	}
}

func TestEncryptPayloadPreservesStructure(t *testing.T) {
	codec := testCodec(t)

	payload := map[string]any{
		"MerchantId": "MER-001",
		"OrderSummary": map[string]any{
			"SubTotal": "5000",
			"Items": []any{
				map[string]any{"Name": "maintenance-jan", "Price": "5000", "Qty": "1"},
			},
		},
		"Optional": nil,
		"Tags":     []any{"a", "b", "c"},
	}

	out, err := codec.EncryptPayload(payload)
	if err != nil {
		t.Fatalf("encrypt payload: %v", err)
	}

	encrypted, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", out)
	}
	if len(encrypted) != len(payload) {
		t.Fatalf("key set changed: got %d keys, want %d", len(encrypted), len(payload))
	}
	for key := range payload {
		if _, ok := encrypted[key]; !ok {
			t.Fatalf("key %q dropped from output", key)
		}
	}

	if encrypted["MerchantId"] != "MER-001" {
		t.Fatalf("merchant field must stay plaintext, got %v", encrypted["MerchantId"])
	}
	if encrypted["Optional"] != nil {
		t.Fatalf("nil leaf must pass through, got %v", encrypted["Optional"])
	}

	summary := encrypted["OrderSummary"].(map[string]any)
	items := summary["Items"].([]any)
	if len(items) != 1 {
		t.Fatalf("array length changed: %d", len(items))
	}
	item := items[0].(map[string]any)
	if len(item) != 3 {
		t.Fatalf("nested key set changed: %d", len(item))
	}
	if item["Price"] == "5000" {
		t.Fatalf("nested scalar left unencrypted")
	}

	plaintext, err := codec.DecryptScalar(item["Price"].(string))
	if err != nil {
		t.Fatalf("decrypt nested scalar: %v", err)
	}
	if plaintext != "5000" {
		t.Fatalf("nested roundtrip mismatch: %q", plaintext)
	}

	tags := encrypted["Tags"].([]any)
	if len(tags) != 3 {
		t.Fatalf("tags length changed: %d", len(tags))
	}
}

func TestEncryptPayloadDoesNotMutateInput(t *testing.T) {
	codec := testCodec(t)

	inner := map[string]any{"Price": "5000"}
	payload := map[string]any{"Item": inner, "List": []any{"x"}}

	if _, err := codec.EncryptPayload(payload); err != nil {
		t.Fatalf("encrypt payload: %v", err)
	}

	if inner["Price"] != "5000" {
		t.Fatalf("input tree mutated: %v", inner["Price"])
	}
	if payload["List"].([]any)[0] != "x" {
		t.Fatalf("input array mutated")
	}
}

func TestFromPEMRejectsGarbage(t *testing.T) {
	if _, err := FromPEM("not a key", "", "MerchantId"); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
