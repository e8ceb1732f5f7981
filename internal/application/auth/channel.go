package auth

import "github.com/go-passwordless/internal/domain"

// Channel is a delivery medium with its own address key and validation rule.
type Channel struct {
	Name        string
	AddressKey  string
	AddressRule string
}

var (
	EmailChannel = Channel{Name: "email", AddressKey: "email", AddressRule: "required,email"}
	SMSChannel   = Channel{Name: "sms", AddressKey: "sms", AddressRule: "required,e164"}
)

// Envelope renders env with the channel's address key. "verified" is present
// only on verified tokens.
func (c Channel) Envelope(env domain.TokenEnvelope) map[string]interface{} {
	out := map[string]interface{}{
		"token":      env.Token,
		c.AddressKey: env.Address,
	}
	if env.Verified {
		out["verified"] = true
	}
	return out
}
