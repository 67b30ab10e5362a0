package sms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snsTypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type AWSSNSProvider struct {
	client   snsPublisher
	region   string
	senderID string
}

func NewAWSSNSProvider(ctx context.Context, region string) (*AWSSNSProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSNSProvider{
		client: sns.NewFromConfig(cfg),
		region: region,
	}, nil
}

// WithSenderID sets the alphanumeric sender shown on handsets in countries
// that support it.
func (a *AWSSNSProvider) WithSenderID(senderID string) *AWSSNSProvider {
	a.senderID = senderID
	return a
}

func (a *AWSSNSProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	attributes := map[string]snsTypes.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": stringAttribute(a.getSMSType(request.Type)),
	}
	if a.senderID != "" {
		attributes["AWS.SNS.SMS.SenderID"] = stringAttribute(a.senderID)
	}

	input := &sns.PublishInput{
		PhoneNumber:       aws.String(request.To),
		Message:           aws.String(request.Message),
		MessageAttributes: attributes,
	}

	resp, err := a.client.Publish(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("sns publish to %s failed: %w", request.To, err)
	}

	return &SMSResponse{
		To:        request.To,
		MessageID: aws.ToString(resp.MessageId),
		Status:    "sent",
	}, nil
}

func (a *AWSSNSProvider) SendBulkSMS(ctx context.Context, requests []*SMSRequest) ([]*SMSResponse, error) {
	return sendEach(ctx, a, requests), nil
}

// Emergency texts are always transactional so carriers do not throttle them.
func (a *AWSSNSProvider) getSMSType(messageType string) string {
	if messageType == "promotional" {
		return "Promotional"
	}
	return "Transactional"
}

func stringAttribute(value string) snsTypes.MessageAttributeValue {
	return snsTypes.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(value),
	}
}
