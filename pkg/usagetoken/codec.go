package usagetoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

const (
	minSecretLength = 32
	payloadVersion  = 1
)

var enc = base64.RawURLEncoding

// Codec encodes and verifies feature-scoped usage tokens.
type Codec struct {
	secrets [][]byte
}

type payload struct {
	Version int    `json:"v"`
	Feature string `json:"f"`
	Count   int64  `json:"n"`
}

// New creates a Codec. The first secret signs, all secrets verify.
func New(secrets []string) (*Codec, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	keys := make([][]byte, 0, len(secrets))
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need at least %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		keys = append(keys, []byte(s))
	}

	return &Codec{secrets: keys}, nil
}

// Encode returns a signed token carrying count for feature.
func (c *Codec) Encode(feature string, count int64) (string, error) {
	if count < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidCount, count)
	}

	body, err := json.Marshal(payload{Version: payloadVersion, Feature: feature, Count: count})
	if err != nil {
		return "", fmt.Errorf("marshal usage token: %w", err)
	}

	data := enc.EncodeToString(body)
	return data + "." + enc.EncodeToString(mac(c.secrets[0], data)), nil
}

// Parse verifies token and returns the count it carries for feature.
func (c *Codec) Parse(token, feature string) (int64, error) {
	data, sig, ok := strings.Cut(token, ".")
	if !ok || data == "" || sig == "" {
		return 0, ErrInvalidFormat
	}

	got, err := enc.DecodeString(sig)
	if err != nil {
		return 0, ErrInvalidFormat
	}

	valid := false
	for _, key := range c.secrets {
		if subtle.ConstantTimeCompare(got, mac(key, data)) == 1 {
			valid = true
			break
		}
	}
	if !valid {
		return 0, ErrInvalidSignature
	}

	body, err := enc.DecodeString(data)
	if err != nil {
		return 0, ErrInvalidFormat
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil || p.Version != payloadVersion {
		return 0, ErrInvalidFormat
	}
	if p.Feature != feature {
		return 0, ErrFeatureMismatch
	}
	if p.Count < 0 {
		return 0, ErrInvalidCount
	}

	return p.Count, nil
}

// Decode returns the count carried by token for feature, or 0 when the token
// is absent or cannot be trusted.
func (c *Codec) Decode(token, feature string) int64 {
	if token == "" {
		return 0
	}
	n, err := c.Parse(token, feature)
	if err != nil {
		return 0
	}
	return n
}

func mac(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
