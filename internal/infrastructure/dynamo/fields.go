package dynamo

// Attribute and index names of the auth events table. These must match the
// dynamodbav tags on domain.AuthEvent.
const (
	attrEventID   = "event_id"
	attrAddress   = "address"
	attrCreatedAt = "created_at"
	attrExpiresAt = "expires_at"

	addressIndex = "address-created_at-index"
)
