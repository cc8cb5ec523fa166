package sinks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

func TestSNSSinkSendSuccess(t *testing.T) {
	client := &fakeSNSClient{}
	sink := &snsSink{
		id:       "sns-1",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      noopLogger{},
	}

	err := sink.Send(context.Background(), NewEvent("a1", "u1", TriggerImmediate, nil))
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::topic" {
		t.Fatalf("TopicArn = %s", got)
	}
	attr, ok := client.input.MessageAttributes["article_id"]
	if !ok || attr.StringValue == nil || aws.ToString(attr.StringValue) != "a1" {
		t.Fatalf("article_id attribute missing or wrong: %#v", attr)
	}
	if client.input.Message == nil || !strings.Contains(aws.ToString(client.input.Message), `"article_id":"a1"`) {
		t.Fatalf("Message missing article_id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSSinkSendError(t *testing.T) {
	client := &fakeSNSClient{err: errors.New("boom")}
	sink := &snsSink{
		id:       "sns-1",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:::topic",
		client:   client,
		log:      noopLogger{},
	}

	if err := sink.Send(context.Background(), NewEvent("a1", "u1", TriggerImmediate, nil)); err == nil {
		t.Fatalf("expected error from Send")
	}
}
