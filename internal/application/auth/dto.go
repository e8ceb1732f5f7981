package auth

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/go-passwordless/internal/domain"
	"github.com/go-passwordless/internal/pkg/validate"
)

// Requests are decoded field by field so unknown keys and wrong types are
// rejected rather than ignored.

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), domain.ErrMalformedInput)
}

func decodeObject(raw []byte, allowed ...string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, malformed("body is not a JSON object")
	}
	if obj == nil {
		return nil, malformed("body is null")
	}
	for k := range obj {
		if !slices.Contains(allowed, k) {
			return nil, malformed("unexpected field %q", k)
		}
	}
	return obj, nil
}

func stringField(obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", malformed("%s is required", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", malformed("%s must be a string", key)
	}
	if s == "" {
		return "", malformed("%s is required", key)
	}
	return s, nil
}

// decodeEnvelope reads a token envelope nested under key.
func (c Channel) decodeEnvelope(obj map[string]json.RawMessage, key string) (domain.TokenEnvelope, error) {
	raw, ok := obj[key]
	if !ok {
		return domain.TokenEnvelope{}, malformed("%s is required", key)
	}
	env, err := decodeObject(raw, "token", c.AddressKey, "verified")
	if err != nil {
		return domain.TokenEnvelope{}, err
	}
	tok, err := stringField(env, "token")
	if err != nil {
		return domain.TokenEnvelope{}, err
	}
	address, err := stringField(env, c.AddressKey)
	if err != nil {
		return domain.TokenEnvelope{}, err
	}
	if verr := validate.Var(address, c.AddressRule); verr != nil {
		return domain.TokenEnvelope{}, malformed("%s.%s: %v", key, c.AddressKey, verr)
	}
	var verified bool
	if v, ok := env["verified"]; ok {
		if err := json.Unmarshal(v, &verified); err != nil {
			return domain.TokenEnvelope{}, malformed("verified must be a boolean")
		}
	}
	return domain.TokenEnvelope{Token: tok, Address: address, Verified: verified}, nil
}
