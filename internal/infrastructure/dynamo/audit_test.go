package dynamo

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-passwordless/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAPI struct{ mock.Mock }

func (m *mockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	return &dynamodb.PutItemOutput{}, args.Error(0)
}

func (m *mockAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, in)
	if out, _ := args.Get(0).(*dynamodb.QueryOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return &dynamodb.CreateTableOutput{}, m.Called(ctx, in).Error(0)
}

func (m *mockAPI) UpdateTimeToLive(ctx context.Context, in *dynamodb.UpdateTimeToLiveInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	return &dynamodb.UpdateTimeToLiveOutput{}, m.Called(ctx, in).Error(0)
}

func sampleEvent() *domain.AuthEvent {
	created := time.Date(2026, 3, 1, 12, 0, 5, 120_000_000, time.UTC)
	return &domain.AuthEvent{
		EventID:   "01J0000000000000000000000",
		Channel:   "email",
		Address:   "a@b.com",
		Action:    domain.ActionVerifyCode,
		Outcome:   domain.OutcomeSuccess,
		CreatedAt: created,
		ExpiresAt: created.Add(24 * time.Hour).Unix(),
	}
}

// --- tests ---

func TestAuditRepo_Put(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		id, ok := in.Item[attrEventID].(*types.AttributeValueMemberS)
		ttl, ttlOK := in.Item[attrExpiresAt].(*types.AttributeValueMemberN)
		created, createdOK := in.Item[attrCreatedAt].(*types.AttributeValueMemberN)
		return aws.ToString(in.TableName) == "auth_events" &&
			ok && id.Value == "01J0000000000000000000000" &&
			createdOK && created.Value == "1772366405120" &&
			ttlOK && ttl.Value != "" &&
			in.ConditionExpression != nil
	})).Return(nil)

	require.NoError(t, NewAuditRepo(api, "auth_events").Put(context.Background(), sampleEvent()))
	api.AssertExpectations(t)
}

func TestAuditRepo_Put_Error(t *testing.T) {
	api := &mockAPI{}
	api.On("PutItem", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	err := NewAuditRepo(api, "auth_events").Put(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestAuditRepo_ListByAddress(t *testing.T) {
	e := sampleEvent()
	item, err := attributevalue.MarshalMap(eventRecord{AuthEvent: *e, CreatedAtMillis: e.CreatedAt.UnixMilli()})
	require.NoError(t, err)

	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		a, ok := in.ExpressionAttributeValues[":a"].(*types.AttributeValueMemberS)
		return aws.ToString(in.IndexName) == addressIndex &&
			ok && a.Value == "a@b.com" &&
			!aws.ToBool(in.ScanIndexForward) &&
			aws.ToInt32(in.Limit) == 10
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	events, err := NewAuditRepo(api, "auth_events").ListByAddress(context.Background(), "a@b.com", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	want := sampleEvent()
	assert.Equal(t, want.EventID, events[0].EventID)
	assert.Equal(t, want.Outcome, events[0].Outcome)
	assert.Equal(t, want.ExpiresAt, events[0].ExpiresAt)
	assert.True(t, want.CreatedAt.Equal(events[0].CreatedAt))
}

func TestEventRecord_CreatedAtSortsNumerically(t *testing.T) {
	// As RFC 3339 text, "…05.1Z" would sort after "…05.12Z".
	earlier := sampleEvent()
	earlier.CreatedAt = time.Date(2026, 3, 1, 12, 0, 5, 100_000_000, time.UTC)
	later := sampleEvent()
	later.CreatedAt = time.Date(2026, 3, 1, 12, 0, 5, 120_000_000, time.UTC)

	millis := func(e *domain.AuthEvent) int64 {
		item, err := attributevalue.MarshalMap(eventRecord{AuthEvent: *e, CreatedAtMillis: e.CreatedAt.UnixMilli()})
		require.NoError(t, err)
		n, ok := item[attrCreatedAt].(*types.AttributeValueMemberN)
		require.True(t, ok, "created_at is a number attribute")
		v, err := strconv.ParseInt(n.Value, 10, 64)
		require.NoError(t, err)
		return v
	}
	assert.Less(t, millis(earlier), millis(later))
}

func TestBootstrap_CreatedAtIsNumericSortKey(t *testing.T) {
	api := &mockAPI{}
	api.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		for _, d := range in.AttributeDefinitions {
			if aws.ToString(d.AttributeName) == attrCreatedAt {
				return d.AttributeType == types.ScalarAttributeTypeN
			}
		}
		return false
	})).Return(nil)
	api.On("UpdateTimeToLive", mock.Anything, mock.Anything).Return(nil)

	Bootstrap(context.Background(), api, "auth_events")
	api.AssertExpectations(t)
}

func TestAuditRepo_ListByAddress_Empty(t *testing.T) {
	api := &mockAPI{}
	api.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil)

	events, err := NewAuditRepo(api, "auth_events").ListByAddress(context.Background(), "a@b.com", 10)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestBootstrap_CreatesTableWithIndexAndTTL(t *testing.T) {
	api := &mockAPI{}
	api.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return aws.ToString(in.TableName) == "auth_events" &&
			len(in.GlobalSecondaryIndexes) == 1 &&
			aws.ToString(in.GlobalSecondaryIndexes[0].IndexName) == addressIndex
	})).Return(nil)
	api.On("UpdateTimeToLive", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateTimeToLiveInput) bool {
		return aws.ToString(in.TimeToLiveSpecification.AttributeName) == attrExpiresAt &&
			aws.ToBool(in.TimeToLiveSpecification.Enabled)
	})).Return(nil)

	Bootstrap(context.Background(), api, "auth_events")
	api.AssertExpectations(t)
}

func TestBootstrap_ExistingTableIsNotFatal(t *testing.T) {
	api := &mockAPI{}
	api.On("CreateTable", mock.Anything, mock.Anything).Return(&types.ResourceInUseException{Message: aws.String("exists")})
	api.On("UpdateTimeToLive", mock.Anything, mock.Anything).Return(errors.New("already enabled"))

	Bootstrap(context.Background(), api, "auth_events")
	api.AssertExpectations(t)
}

func TestGSI_HashOnly(t *testing.T) {
	g := gsi("x-index", "x", "")
	assert.Len(t, g.KeySchema, 1)
	assert.Equal(t, types.KeyTypeHash, g.KeySchema[0].KeyType)
}
