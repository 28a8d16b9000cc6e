package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Kassie406/familyvault-app-sub005/internal/analyzer"
	"github.com/Kassie406/familyvault-app-sub005/internal/documents"
	"github.com/Kassie406/familyvault-app-sub005/internal/extract"
	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
	"github.com/Kassie406/familyvault-app-sub005/internal/queue"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/metrics"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/storage/object"
	"github.com/Kassie406/familyvault-app-sub005/internal/shared/telemetry"
)

const (
	defaultFetchInterval = 2 * time.Second
	defaultFetchTimeout  = 2 * time.Minute
)

// Dispatcher submits analysis requests to the remote analyzer, deduplicates
// concurrent requests per document, and supports cancellation.
//
// Two guards cooperate: started is permanent per document instance and
// suppresses automatic re-triggering (repeated registration notifications);
// inFlight is transient and cleared on every outcome so a manual retry can
// resubmit. Retry bypasses started but never inFlight.
type Dispatcher struct {
	Docs     documents.DocumentsRepo
	Store    object.ObjectStore
	Inbox    inbox.Store
	Analyzer analyzer.Client
	JobQueue queue.Client

	FetchInterval time.Duration
	FetchTimeout  time.Duration

	mu       sync.Mutex
	started  map[string]struct{}
	inFlight map[string]*inFlightAnalysis
}

type inFlightAnalysis struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(docs documents.DocumentsRepo, store object.ObjectStore, inboxStore inbox.Store, client analyzer.Client, jobQueue queue.Client) *Dispatcher {
	return &Dispatcher{
		Docs:     docs,
		Store:    store,
		Inbox:    inboxStore,
		Analyzer: client,
		JobQueue: jobQueue,
		started:  make(map[string]struct{}),
		inFlight: make(map[string]*inFlightAnalysis),
	}
}

// Start begins analysis for a document. Fire-and-forget: completion is
// observed through the inbox store. A document that has already been started
// or has a request in flight is a no-op.
func (d *Dispatcher) Start(ctx context.Context, doc documents.Document) {
	d.start(ctx, doc, false)
}

// Retry resubmits analysis for a document, bypassing the permanent guard.
// Still a no-op while a request is in flight.
func (d *Dispatcher) Retry(ctx context.Context, doc documents.Document) {
	d.start(ctx, doc, true)
}

func (d *Dispatcher) start(ctx context.Context, doc documents.Document, bypassGuard bool) {
	d.mu.Lock()
	if !bypassGuard {
		if _, ok := d.started[doc.ID]; ok {
			d.mu.Unlock()
			return
		}
	}
	if _, ok := d.inFlight[doc.ID]; ok {
		d.mu.Unlock()
		return
	}
	d.started[doc.ID] = struct{}{}
	runCtx, cancel := context.WithCancel(backgroundWithRequestID(ctx))
	entry := &inFlightAnalysis{cancel: cancel, done: make(chan struct{})}
	d.inFlight[doc.ID] = entry
	d.mu.Unlock()

	go d.run(runCtx, doc, entry)
}

// Cancel aborts the in-flight analysis for a document, if any. The result of
// a cancelled request is never applied locally; the remote call may still
// have completed on the service side.
func (d *Dispatcher) Cancel(documentID string) bool {
	d.mu.Lock()
	entry, ok := d.inFlight[documentID]
	d.mu.Unlock()
	if !ok {
		return false
	}
	entry.cancel()
	return true
}

// CancelAll aborts every outstanding analysis. Used on teardown of the
// observing surface and on shutdown.
func (d *Dispatcher) CancelAll() {
	d.mu.Lock()
	entries := make([]*inFlightAnalysis, 0, len(d.inFlight))
	for _, entry := range d.inFlight {
		entries = append(entries, entry)
	}
	d.mu.Unlock()
	for _, entry := range entries {
		entry.cancel()
	}
}

// InFlight reports whether a request is outstanding for a document.
func (d *Dispatcher) InFlight(documentID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[documentID]
	return ok
}

// Wait blocks until the in-flight request for a document finishes, if one
// exists. Intended for tests and orderly shutdown.
func (d *Dispatcher) Wait(documentID string) {
	d.mu.Lock()
	entry, ok := d.inFlight[documentID]
	d.mu.Unlock()
	if ok {
		<-entry.done
	}
}

func (d *Dispatcher) run(ctx context.Context, doc documents.Document, entry *inFlightAnalysis) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			d.fail(ctx, doc, fmt.Errorf("panic: %v", r), startedAt)
		}
		// Clearing the in-flight entry on every outcome is what makes a
		// later manual retry possible.
		d.mu.Lock()
		delete(d.inFlight, doc.ID)
		d.mu.Unlock()
		close(entry.done)
		entry.cancel()
	}()

	if err := d.Inbox.SetStatus(ctx, doc.ID, inbox.StatusAnalyzing); err != nil {
		// Terminal or already dismissed; nothing to do.
		return
	}
	metrics.IncAnalysisStarted()
	logStatus(ctx, doc, "uploaded->analyzing", nil)

	if d.JobQueue != nil {
		if err := d.enqueue(ctx, doc); err != nil {
			d.fail(ctx, doc, fmt.Errorf("enqueue analysis: %w", err), startedAt)
		}
		return
	}

	outcome, err := d.analyze(ctx, doc)
	switch {
	case isCancellation(ctx, err):
		d.cancelled(doc, startedAt)
	case err != nil:
		d.fail(ctx, doc, err, startedAt)
	default:
		d.complete(ctx, doc, outcome, startedAt)
	}
}

// analyze extracts the document text, submits it, and polls for the outcome.
// Every await point checks the cancellation token.
func (d *Dispatcher) analyze(ctx context.Context, doc documents.Document) (analyzer.Outcome, error) {
	text, err := extract.ExtractText(ctx, d.Store, doc.StorageKey, doc.MimeType, doc.FileName)
	if err != nil {
		return analyzer.Outcome{}, fmt.Errorf("extract document %s mime %s: %w", doc.ID, doc.MimeType, err)
	}

	handle, err := d.Analyzer.Submit(ctx, doc.ID, text)
	if err != nil {
		return analyzer.Outcome{}, fmt.Errorf("submit analysis: %w", err)
	}

	interval := d.FetchInterval
	if interval <= 0 {
		interval = defaultFetchInterval
	}
	timeout := d.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return analyzer.Outcome{}, ctx.Err()
		case <-deadline.C:
			return analyzer.Outcome{}, fmt.Errorf("fetch analysis result: %w", context.DeadlineExceeded)
		case <-ticker.C:
			outcome, err := d.Analyzer.Fetch(ctx, handle)
			if err != nil {
				return analyzer.Outcome{}, fmt.Errorf("fetch analysis result: %w", err)
			}
			if outcome.Kind == analyzer.OutcomePending {
				continue
			}
			return outcome, nil
		}
	}
}

func (d *Dispatcher) complete(ctx context.Context, doc documents.Document, outcome analyzer.Outcome, startedAt time.Time) {
	if outcome.Kind == analyzer.OutcomeFailed {
		d.fail(ctx, doc, fmt.Errorf("analysis failed: %s", outcome.FailureMessage), startedAt)
		return
	}
	// Re-check the token before applying; a cancel signal may have landed
	// while the final fetch was on the wire.
	if ctx.Err() != nil {
		d.cancelled(doc, startedAt)
		return
	}

	err := d.Inbox.SetSuggestion(context.Background(), doc.ID, *outcome.Suggestion)
	if errors.Is(err, inbox.ErrTerminal) {
		// Dismissed while analyzing; terminal status wins and the late
		// completion is discarded.
		logStatus(ctx, doc, "completion discarded (terminal)", nil)
		return
	}
	if err != nil {
		d.fail(ctx, doc, fmt.Errorf("store suggestion: %w", err), startedAt)
		return
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt))
	logStatus(ctx, doc, "analyzing->suggested", nil)
}

// cancelled reverts to uploaded silently; cancellation is never an error.
func (d *Dispatcher) cancelled(doc documents.Document, startedAt time.Time) {
	err := d.Inbox.SetStatus(context.Background(), doc.ID, inbox.StatusUploaded)
	metrics.IncAnalysisCancelled()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt))
	if errors.Is(err, inbox.ErrTerminal) {
		// Item went terminal while the cancel was in flight; the terminal
		// status stands and there is no revert to report.
		telemetry.Info("analysis.status", map[string]any{
			"document_id":       doc.ID,
			"user_id":           doc.UserID,
			"status_transition": "cancel discarded (terminal)",
			"cancelled":         true,
		})
		return
	}
	if err != nil {
		telemetry.Error("analysis.cancel", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	telemetry.Info("analysis.status", map[string]any{
		"document_id":       doc.ID,
		"user_id":           doc.UserID,
		"status_transition": "analyzing->uploaded",
		"cancelled":         true,
	})
}

// fail reverts to uploaded with a user-visible, retryable error. A failure on
// one document never affects another.
func (d *Dispatcher) fail(ctx context.Context, doc documents.Document, cause error, startedAt time.Time) {
	msg := sanitizeError(cause)
	err := d.Inbox.SetFailure(context.Background(), doc.ID, msg)
	if err != nil && !errors.Is(err, inbox.ErrTerminal) {
		telemetry.Error("analysis.fail", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(durationMs(startedAt))
	logStatus(ctx, doc, "analyzing->uploaded", cause)
}

func (d *Dispatcher) enqueue(ctx context.Context, doc documents.Document) error {
	msg := queue.Message{
		DocumentID: doc.ID,
		UserID:     doc.UserID,
		RequestID:  requestIDFromContext(ctx),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	}
	if err := d.JobQueue.Send(ctx, msg); err != nil {
		return err
	}
	metrics.IncAnalysisJobsEnqueued()
	return nil
}

// ProcessDocument runs the submit/poll/apply sequence synchronously. Used by
// the queue worker; the terminal check in the inbox store still protects a
// racing dismissal.
func (d *Dispatcher) ProcessDocument(ctx context.Context, userID, documentID string) error {
	doc, err := d.Docs.GetByID(ctx, userID, documentID)
	if err != nil {
		return fmt.Errorf("document lookup id=%s: %w", documentID, err)
	}

	startedAt := time.Now().UTC()
	outcome, err := d.analyze(ctx, doc)
	switch {
	case isCancellation(ctx, err):
		d.cancelled(doc, startedAt)
		return nil
	case err != nil:
		d.fail(ctx, doc, err, startedAt)
		return err
	default:
		d.complete(ctx, doc, outcome, startedAt)
		return nil
	}
}

func isCancellation(ctx context.Context, err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return err != nil && ctx.Err() == context.Canceled
}

func logStatus(ctx context.Context, doc documents.Document, transition string, cause error) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"document_id":       doc.ID,
		"user_id":           doc.UserID,
		"status_transition": transition,
	}
	if cause != nil {
		fields["error"] = sanitizeError(cause)
		telemetry.Error("analysis.status", fields)
		return
	}
	telemetry.Info("analysis.status", fields)
}

func durationMs(startedAt time.Time) float64 {
	return float64(time.Since(startedAt).Microseconds()) / 1000.0
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

// ClassifyFailure maps an analysis error to an error code plus whether the
// operation may be resubmitted.
func ClassifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeAnalyzerTimeout, true
	}
	if analyzer.IsRetryable(err) {
		return ErrorCodeAnalyzerUnavailable, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "extract") || strings.Contains(msg, "storage") || strings.Contains(msg, "store suggestion") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}
