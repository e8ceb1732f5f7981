package domain

import "time"

// Auth event actions.
const (
	ActionRequestCode = "request_code"
	ActionVerifyCode  = "verify_code"
	ActionVerifyToken = "verify_token"
)

// Auth event outcomes.
const (
	OutcomeSuccess        = "success"
	OutcomeMalformed      = "malformed"
	OutcomeDenied         = "denied"
	OutcomeRateLimited    = "rate_limited"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeInternal       = "internal"
)

// AuthEvent records one controller transition. It never carries codes or tokens.
// PK: event_id. GSI: address-created_at-index, where created_at is stored as
// Unix milliseconds so the index sorts numerically.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type AuthEvent struct {
	EventID   string    `json:"event_id" dynamodbav:"event_id"`
	Channel   string    `json:"channel" dynamodbav:"channel"`
	Address   string    `json:"address" dynamodbav:"address"`
	Action    string    `json:"action" dynamodbav:"action"`
	Outcome   string    `json:"outcome" dynamodbav:"outcome"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"-"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
