package fieldcrypt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrKeyMissing    = errors.New("key_missing")
	ErrEncryptFailed = errors.New("encrypt_failed")
	ErrDecryptFailed = errors.New("decrypt_failed")
	ErrInvalidKey    = errors.New("invalid_key")
)

// Codec converts between plaintext domain values and the bank's field-level
// ciphertext representation. Every scalar leaf of a checkout payload is
// RSA-encrypted independently; the bank reads exactly one field in plaintext,
// the merchant principal named by plainField.
type Codec struct {
	public     *rsa.PublicKey
	private    *rsa.PrivateKey
	plainField string
}

func New(public *rsa.PublicKey, private *rsa.PrivateKey, plainField string) *Codec {
	return &Codec{
		public:     public,
		private:    private,
		plainField: strings.TrimSpace(plainField),
	}
}

// FromPEM builds a codec from PEM-encoded key material. Either key may be
// empty; the corresponding operation then fails with ErrKeyMissing.
func FromPEM(publicPEM, privatePEM, plainField string) (*Codec, error) {
	var (
		public  *rsa.PublicKey
		private *rsa.PrivateKey
	)

	if strings.TrimSpace(publicPEM) != "" {
		parsed, err := parsePublicKey([]byte(publicPEM))
		if err != nil {
			return nil, err
		}
		public = parsed
	}
	if strings.TrimSpace(privatePEM) != "" {
		parsed, err := parsePrivateKey([]byte(privatePEM))
		if err != nil {
			return nil, err
		}
		private = parsed
	}

	return New(public, private, plainField), nil
}

// EncryptScalar RSA-encrypts the string representation of value with PKCS#1
// v1.5 padding and returns it base64-encoded.
func (c *Codec) EncryptScalar(value any) (string, error) {
	if c == nil || c.public == nil {
		return "", ErrKeyMissing
	}

	plaintext := []byte(stringify(value))
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, c.public, plaintext)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptFailed, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptScalar is the inverse of EncryptScalar. Ciphertext that travelled in
// a URL may carry spaces where `+` characters belong; those are normalized
// before base64 decoding.
func (c *Codec) DecryptScalar(ciphertext string) (string, error) {
	if c == nil || c.private == nil {
		return "", ErrKeyMissing
	}

	normalized := strings.ReplaceAll(ciphertext, " ", "+")
	raw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, c.private, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return string(plaintext), nil
}

// EncryptPayload recursively transforms an arbitrary JSON-like value tree,
// replacing every scalar leaf with its encrypted form. Nil leaves and the
// plaintext merchant field pass through unchanged. The input tree is never
// mutated; the output has the same depth, branching, and key sets.
func (c *Codec) EncryptPayload(node any) (any, error) {
	return c.encryptNode("", node)
}

func (c *Codec) encryptNode(key string, node any) (any, error) {
	switch typed := node.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			transformed, err := c.encryptNode(k, v)
			if err != nil {
				return nil, err
			}
			out[k] = transformed
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, v := range typed {
			transformed, err := c.encryptNode(key, v)
			if err != nil {
				return nil, err
			}
			out[i] = transformed
		}
		return out, nil
	default:
		if key != "" && key == c.plainField {
			return node, nil
		}
		return c.EncryptScalar(node)
	}
}

func stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func parsePublicKey(pemBytes []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}

	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		if key, ok := parsed.(*rsa.PublicKey); ok {
			return key, nil
		}
		return nil, ErrInvalidKey
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, ErrInvalidKey
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, ErrInvalidKey
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if key, ok := parsed.(*rsa.PrivateKey); ok {
			return key, nil
		}
	}
	return nil, ErrInvalidKey
}
