package domain

// TokenPayload is the claim set carried by a signed token.
// Exactly one of Audience (unverified stage) or Subject (verified stage) is set.
type TokenPayload struct {
	ExpiresAt int64 // Unix seconds
	Audience  string
	Subject   string
	Verified  bool
}

// TokenEnvelope is the signed token plus the address it was issued for.
// The address is redundant with the embedded claim. Verification compares it
// with the decoded claim first and only checks the signature on a match.
type TokenEnvelope struct {
	Token    string
	Address  string
	Verified bool
}
