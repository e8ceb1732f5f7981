package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-passwordless/internal/config"
	"github.com/go-passwordless/internal/domain"
	"github.com/go-passwordless/internal/infrastructure/awsconf"
)

// Publisher is the subset of *sns.Client the sender uses.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Sender delivers text messages via AWS SNS direct-to-phone publish.
type Sender struct {
	client Publisher
}

// NewClient creates an SNS client in cfg.SNSRegion, honouring the LocalStack
// endpoint override.
func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awsconf.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		o.BaseEndpoint = awsconf.Endpoint(cfg)
	}), nil
}

func NewSender(client Publisher) *Sender {
	return &Sender{client: client}
}

// Send publishes msg.Text to the E.164 number in msg.To. Subject and HTML are
// not carried by SMS.
func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	if msg.To == "" || msg.Text == "" {
		return fmt.Errorf("sns: recipient and text are required")
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(msg.To),
		Message:     aws.String(msg.Text),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
