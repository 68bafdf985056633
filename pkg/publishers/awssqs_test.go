package publishers

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/captainnews-gr/captainnews-harvester/internal/domain"
	"github.com/captainnews-gr/captainnews-harvester/internal/logger"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

func sampleEvent() Event {
	return NewEvent("news", TriggerScheduled, domain.AggregateResult{
		GeneratedAt:       time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		TotalArticles:     3,
		TotalSources:      4,
		SuccessfulSources: 2,
		Categories: map[string]domain.CategorySummary{
			"breaking": {Title: "Breaking", Articles: make([]domain.Article, 3)},
		},
	})
}

func TestAWSSQSSenderSendSuccess(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      &logger.NopLogger{},
	}

	if err := sender.Send(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["trigger"]
	if !ok || aws.ToString(attr.StringValue) != TriggerScheduled {
		t.Fatalf("trigger attribute missing or wrong: %#v", attr)
	}
	if attr.DataType == nil || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("DataType should be String, got %#v", attr.DataType)
	}
	body := aws.ToString(client.input.MessageBody)
	if !strings.Contains(body, `"cache_key":"news"`) || !strings.Contains(body, `"breaking":3`) {
		t.Fatalf("MessageBody missing snapshot fields: %s", body)
	}
}

func TestAWSSQSSenderSendError(t *testing.T) {
	client := &fakeSQSClient{err: errors.New("boom")}
	sender := &awsSQSSender{
		queueURL: "https://example.com/queue",
		client:   client,
		log:      &logger.NopLogger{},
	}

	if err := sender.Send(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error from Send")
	}
}

func TestAWSSQSSenderFIFOQueue(t *testing.T) {
	client := &fakeSQSClient{}
	sender := &awsSQSSender{
		queueURL: "https://sqs.eu-central-1.amazonaws.com/1/news.fifo",
		client:   client,
		log:      &logger.NopLogger{},
	}

	evt := sampleEvent()
	if err := sender.Send(context.Background(), evt); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if got := aws.ToString(client.input.MessageGroupId); got != "news" {
		t.Fatalf("MessageGroupId = %q", got)
	}
	want := "news-" + strconv.FormatInt(evt.GeneratedAt.UnixMilli(), 10)
	if got := aws.ToString(client.input.MessageDeduplicationId); got != want {
		t.Fatalf("MessageDeduplicationId = %q want %q", got, want)
	}
}
