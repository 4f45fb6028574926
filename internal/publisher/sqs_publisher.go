package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// OutcomePublisher announces a finished batch to downstream consumers.
type OutcomePublisher interface {
	Publish(ctx context.Context, outcome *business.BatchOutcome) error
}

// SQSAPI is the part of the SQS client used by SQSPublisher.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends one message per batch to an SQS queue.
type SQSPublisher struct {
	client   SQSAPI
	queueURL string
}

func NewSQSPublisher(client SQSAPI, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, outcome *business.BatchOutcome) error {
	body, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal batch outcome: %w", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"BatchID": {
				StringValue: aws.String(outcome.BatchID.String()),
				DataType:    aws.String("String"),
			},
			"RequestType": {
				StringValue: aws.String(outcome.RequestType),
				DataType:    aws.String("String"),
			},
			"Failed": {
				StringValue: aws.String(strconv.Itoa(outcome.Failed)),
				DataType:    aws.String("Number"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}

// NopPublisher drops outcomes. Used when no queue is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *business.BatchOutcome) error { return nil }
