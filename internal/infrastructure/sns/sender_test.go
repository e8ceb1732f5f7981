package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-passwordless/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out, _ := args.Get(0).(*sns.PublishOutput); out != nil {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestSend_PublishesTextOnly(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		return aws.ToString(in.PhoneNumber) == "+358401234567" &&
			aws.ToString(in.Message) == "Your sign-in code is 0427" &&
			aws.ToString(in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue) == "Transactional"
	})).Return(&sns.PublishOutput{MessageId: aws.String("m-1")}, nil)

	err := NewSender(pub).Send(context.Background(), domain.Message{
		To:      "+358401234567",
		Subject: "ignored",
		Text:    "Your sign-in code is 0427",
		HTML:    "<b>ignored</b>",
	})
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestSend_PropagatesPublishError(t *testing.T) {
	pubErr := errors.New("throttled")
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil, pubErr)

	err := NewSender(pub).Send(context.Background(), domain.Message{To: "+358401234567", Text: "x"})
	assert.True(t, errors.Is(err, pubErr))
}

func TestSend_RequiresRecipientAndText(t *testing.T) {
	pub := &mockPublisher{}
	s := NewSender(pub)

	assert.Error(t, s.Send(context.Background(), domain.Message{Text: "x"}))
	assert.Error(t, s.Send(context.Background(), domain.Message{To: "+358401234567"}))
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}
