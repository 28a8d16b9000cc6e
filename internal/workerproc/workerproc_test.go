package workerproc

import (
	"context"
	"errors"
	"testing"

	"github.com/Kassie406/familyvault-app-sub005/internal/queue"
)

type stubProcessor struct {
	err   error
	calls []string
}

func (p *stubProcessor) ProcessDocument(ctx context.Context, userID, documentID string) error {
	p.calls = append(p.calls, userID+"/"+documentID)
	return p.err
}

func TestParseMessage(t *testing.T) {
	msg, meta, err := ParseMessage(`{"documentId":"doc-1","userId":"user-1","requestId":"req-1","version":1}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.DocumentID != "doc-1" || msg.UserID != "user-1" || msg.RequestID != "req-1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if meta.BodyLen == 0 || meta.BodySHA == "" {
		t.Fatalf("meta not computed: %+v", meta)
	}
}

func TestParseMessageEmptyBody(t *testing.T) {
	_, _, err := ParseMessage("   ")
	var empty ErrEmptyBody
	if !errors.As(err, &empty) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseMessageInvalidJSON(t *testing.T) {
	_, meta, err := ParseMessage("{not json")
	var decode ErrDecode
	if !errors.As(err, &decode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != len("{not json") {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestParseMessageMissingDocumentID(t *testing.T) {
	_, _, err := ParseMessage(`{"userId":"user-1","requestId":"req-9"}`)
	var missing ErrMissingDocumentID
	if !errors.As(err, &missing) {
		t.Fatalf("expected ErrMissingDocumentID, got %v", err)
	}
	if missing.RequestID != "req-9" {
		t.Fatalf("request id not carried: %+v", missing)
	}
}

func TestHandleMessageProcesses(t *testing.T) {
	p := &stubProcessor{}
	body := `{"documentId":"doc-1","userId":"user-1","requestId":"req-1","version":1}`
	if err := HandleMessage(context.Background(), p, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(p.calls) != 1 || p.calls[0] != "user-1/doc-1" {
		t.Fatalf("unexpected calls: %v", p.calls)
	}
}

func TestHandleMessageUsesParsedContext(t *testing.T) {
	p := &stubProcessor{}
	msg := queue.Message{DocumentID: "doc-2", UserID: "user-2", RequestID: "req-2"}
	ctx := WithParsedMessage(context.Background(), msg)
	// Body is ignored when the decoded message rides the context.
	if err := HandleMessage(ctx, p, "garbage"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(p.calls) != 1 || p.calls[0] != "user-2/doc-2" {
		t.Fatalf("unexpected calls: %v", p.calls)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	p := &stubProcessor{err: errors.New("analyzer down")}
	body := `{"documentId":"doc-1","userId":"user-1","version":1}`
	err := HandleMessage(context.Background(), p, body)
	var procErr ErrProcess
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if procErr.DocumentID != "doc-1" {
		t.Fatalf("unexpected error detail: %+v", procErr)
	}
}
