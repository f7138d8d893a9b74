package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Publisher описывает часть клиента SNS, нужную для отправки SMS.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier отправляет SMS через Amazon SNS.
type SNSNotifier struct {
	client Publisher
}

// NewSNSNotifier загружает конфигурацию AWS для региона и создаёт клиента SNS.
func NewSNSNotifier(ctx context.Context, region string) (*SNSNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSNSNotifierWithClient(sns.NewFromConfig(cfg)), nil
}

// NewSNSNotifierWithClient создаёт SNSNotifier поверх готового клиента.
func NewSNSNotifierWithClient(client Publisher) *SNSNotifier {
	return &SNSNotifier{client: client}
}

// Send публикует транзакционное SMS на номер to.
func (n *SNSNotifier) Send(ctx context.Context, to, message string) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(toE164(to)),
		Message:     aws.String(message),
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

// toE164 убирает пробелы и дефисы из номера: "+91 87075-35798" → "+918707535798".
func toE164(phone string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, phone)
}
