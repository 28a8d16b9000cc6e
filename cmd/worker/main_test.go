package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Kassie406/familyvault-app-sub005/internal/queue"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	_ = ctx
	_ = params
	_ = optFns
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	_ = ctx
	_ = optFns
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) ProcessDocument(ctx context.Context, userID, documentID string) error {
	_ = ctx
	_ = userID
	_ = documentID
	return f.err
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	svc := fakeProcessor{}
	msgBody, _ := queue.EncodeMessage(queue.Message{DocumentID: "doc-1", UserID: "user-1", RequestID: "req-1"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(string(msgBody)),
		Attributes:    map[string]string{"ApproximateReceiveCount": "1"},
	}

	handleMessage(context.Background(), client, "queue", svc, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerKeepsRetryableFailureOnQueue(t *testing.T) {
	client := &fakeSQS{}
	svc := fakeProcessor{err: context.DeadlineExceeded}
	msgBody, _ := queue.EncodeMessage(queue.Message{DocumentID: "doc-2", UserID: "user-1", RequestID: "req-2"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m2"),
		ReceiptHandle: aws.String("r2"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), client, "queue", svc, msg)

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %d", len(client.deleted))
	}
}

func TestWorkerDropsUnrecoverableFailure(t *testing.T) {
	client := &fakeSQS{}
	svc := fakeProcessor{err: errors.New("corrupt payload")}
	msgBody, _ := queue.EncodeMessage(queue.Message{DocumentID: "doc-5", UserID: "user-1", RequestID: "req-5"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m5"),
		ReceiptHandle: aws.String("r5"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), client, "queue", svc, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete of unrecoverable job, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	svc := fakeProcessor{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	handleMessage(context.Background(), client, "queue", svc, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}

func TestWorkerDeletesOnMissingDocumentID(t *testing.T) {
	client := &fakeSQS{}
	svc := fakeProcessor{}
	msgBody, _ := queue.EncodeMessage(queue.Message{RequestID: "req-4"})
	msg := sqstypes.Message{
		MessageId:     aws.String("m4"),
		ReceiptHandle: aws.String("r4"),
		Body:          aws.String(string(msgBody)),
	}

	handleMessage(context.Background(), client, "queue", svc, msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
}
