package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-passwordless/internal/domain"
)

// AuditAPI is the subset of *dynamodb.Client the audit repo uses.
type AuditAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// AuditRepo stores auth events.
// PK: event_id. GSI: address-created_at-index (newest first on query).
type AuditRepo struct {
	client    AuditAPI
	tableName string
}

// eventRecord is the stored shape of an AuthEvent.
type eventRecord struct {
	domain.AuthEvent
	CreatedAtMillis int64 `dynamodbav:"created_at"`
}

func NewAuditRepo(client AuditAPI, tableName string) *AuditRepo {
	return &AuditRepo{client: client, tableName: tableName}
}

func (r *AuditRepo) Put(ctx context.Context, e *domain.AuthEvent) error {
	item, err := attributevalue.MarshalMap(eventRecord{AuthEvent: *e, CreatedAtMillis: e.CreatedAt.UnixMilli()})
	if err != nil {
		return fmt.Errorf("marshal auth event: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{
			"#id": attrEventID,
		},
	})
	if err != nil {
		return fmt.Errorf("put auth event: %w", err)
	}
	return nil
}

// ListByAddress returns up to limit events for address, newest first.
func (r *AuditRepo) ListByAddress(ctx context.Context, address string, limit int32) ([]domain.AuthEvent, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(addressIndex),
		KeyConditionExpression: aws.String("#a = :a"),
		ExpressionAttributeNames: map[string]string{
			"#a": attrAddress,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: address},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("query auth events: %w", err)
	}
	var records []eventRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("unmarshal auth events: %w", err)
	}
	events := make([]domain.AuthEvent, 0, len(records))
	for _, rec := range records {
		e := rec.AuthEvent
		e.CreatedAt = time.UnixMilli(rec.CreatedAtMillis).UTC()
		events = append(events, e)
	}
	return events, nil
}
