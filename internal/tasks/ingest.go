package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/banksync/internal/docparse"
	"github.com/avolkov/banksync/internal/domain"
	"github.com/avolkov/banksync/internal/logger"
	"github.com/avolkov/banksync/internal/objstore"
)

const (
	maxUploadSize = 50 * 1024 * 1024

	defaultRetrievalTimeout  = 30 * time.Second
	defaultRetrievalAttempts = 3
	defaultRetrievalBackoff  = time.Second
	defaultParseTimeout      = 2 * time.Minute
)

var supportedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"image/heic":      true,
}

// UploadInput describes a freshly stored upload.
type UploadInput struct {
	TeamID      string
	FilePath    string
	ContentType string
	Size        int64
}

// IngestResult is the reported outcome of one ingestion run. Retrieval and
// parse failures are outcomes, not pipeline crashes: Success is false but no
// error is returned.
type IngestResult struct {
	InboxID string             `json:"inbox_id"`
	Success bool               `json:"success"`
	Status  domain.InboxStatus `json:"status"`
	Error   string             `json:"error,omitempty"`
}

// IngestorOptions tune the retrieval and parse ceilings.
type IngestorOptions struct {
	RetrievalTimeout  time.Duration
	RetrievalAttempts int
	RetrievalBackoff  time.Duration
	ParseTimeout      time.Duration
}

// Ingestor runs the document ingestion pipeline: store metadata, retrieve
// bytes, extract structured fields, reconcile into the inbox record.
type Ingestor struct {
	store     InboxStore
	retriever objstore.Retriever
	parser    docparse.Parser
	opts      IngestorOptions
}

// NewIngestor creates an ingestor. Zero option fields get defaults.
func NewIngestor(store InboxStore, retriever objstore.Retriever, parser docparse.Parser, opts IngestorOptions) *Ingestor {
	if opts.RetrievalTimeout <= 0 {
		opts.RetrievalTimeout = defaultRetrievalTimeout
	}
	if opts.RetrievalAttempts <= 0 {
		opts.RetrievalAttempts = defaultRetrievalAttempts
	}
	if opts.RetrievalBackoff <= 0 {
		opts.RetrievalBackoff = defaultRetrievalBackoff
	}
	if opts.ParseTimeout <= 0 {
		opts.ParseTimeout = defaultParseTimeout
	}
	return &Ingestor{store: store, retriever: retriever, parser: parser, opts: opts}
}

// ProcessUpload handles the upload path: validate, create the inbox row in
// status NEW, then retrieve and parse. A missing team or a failed row
// creation is a critical error and propagates as task failure.
func (i *Ingestor) ProcessUpload(ctx context.Context, in UploadInput) (*IngestResult, error) {
	log := logger.FromContext(ctx)

	if in.Size <= 0 {
		return nil, fmt.Errorf("invalid upload size %d", in.Size)
	}
	if in.Size > maxUploadSize {
		return nil, fmt.Errorf("upload size %d exceeds limit of %d bytes", in.Size, maxUploadSize)
	}
	if !supportedContentTypes[in.ContentType] {
		log.Warn().Str("content_type", in.ContentType).Msg("unsupported content type, attempting ingestion anyway")
	}

	inbox := &domain.Inbox{
		ID:          uuid.NewString(),
		TeamID:      in.TeamID,
		FilePath:    in.FilePath,
		FileName:    objstore.FileNameFromPath(in.FilePath),
		ContentType: in.ContentType,
		Size:        in.Size,
		Status:      domain.InboxNew,
	}
	if err := i.store.CreateInbox(ctx, inbox); err != nil {
		return nil, fmt.Errorf("create inbox record: %w", err)
	}

	return i.process(ctx, inbox)
}

// Reprocess handles the reprocess path: re-read an existing inbox record
// and run retrieval and parsing again, skipping creation.
func (i *Ingestor) Reprocess(ctx context.Context, inboxID string) (*IngestResult, error) {
	inbox, err := i.store.GetInbox(ctx, inboxID)
	if err != nil {
		return nil, err
	}
	return i.process(ctx, inbox)
}

// process is the shared retrieval+parsing procedure. It never moves a
// record backward and distinguishes "file lost" (FAILED_RETRIEVAL) from
// "file present but unparsed" (PENDING with error meta).
func (i *Ingestor) process(ctx context.Context, inbox *domain.Inbox) (*IngestResult, error) {
	log := logger.FromContext(ctx).With().Str("inbox_id", inbox.ID).Logger()

	if err := i.store.SetInboxStatus(ctx, inbox.ID, domain.InboxProcessing); err != nil {
		return nil, i.critical(ctx, inbox.ID, fmt.Errorf("mark processing: %w", err))
	}

	// Retrieval: raced against a hard ceiling, retried with exponential
	// backoff. Permanent storage errors short-circuit the retries.
	content, err := RetryWithBackoff(ctx, i.opts.RetrievalAttempts, i.opts.RetrievalBackoff, retrievalPermanent,
		func(ctx context.Context) ([]byte, error) {
			return WithTimeout(ctx, i.opts.RetrievalTimeout, func(ctx context.Context) ([]byte, error) {
				return i.retriever.Retrieve(ctx, inbox.FilePath)
			})
		})
	if err != nil {
		log.Error().Err(err).Msg("document retrieval failed")
		meta := map[string]any{"retrievalError": err.Error()}
		if metaErr := i.store.SetInboxFailure(ctx, inbox.ID, domain.InboxFailedRetrieval, meta); metaErr != nil {
			return nil, i.critical(ctx, inbox.ID, fmt.Errorf("record retrieval failure: %w", metaErr))
		}
		return &IngestResult{
			InboxID: inbox.ID,
			Success: false,
			Status:  domain.InboxFailedRetrieval,
			Error:   err.Error(),
		}, nil
	}

	// Parsing: best effort. A failure degrades the record to PENDING with
	// diagnostics rather than failing it; the upload stays visible.
	extraction, err := WithTimeout(ctx, i.opts.ParseTimeout, func(ctx context.Context) (*docparse.Extraction, error) {
		return i.parser.Parse(ctx, docparse.Input{Content: content, ContentType: inbox.ContentType})
	})
	if err != nil {
		message := classifyParseError(err)
		log.Warn().Err(err).Str("classified", message).Msg("document parsing failed, degrading to pending")

		inbox.Status = domain.InboxPending
		inbox.Meta = map[string]any{"processingError": message}
		if metaErr := i.store.ReconcileInboxExtraction(ctx, inbox); metaErr != nil {
			return nil, i.critical(ctx, inbox.ID, fmt.Errorf("record parse failure: %w", metaErr))
		}
		return &IngestResult{
			InboxID: inbox.ID,
			Success: false,
			Status:  domain.InboxPending,
			Error:   message,
		}, nil
	}

	inbox.Status = domain.InboxPending
	inbox.DisplayName = extraction.Name
	inbox.Type = extraction.Type
	inbox.Amount = extraction.Amount
	inbox.Currency = extraction.Currency
	inbox.Date = extraction.Date
	inbox.Website = extraction.Website
	inbox.Description = extraction.Description
	inbox.Meta = nil

	if err := i.store.ReconcileInboxExtraction(ctx, inbox); err != nil {
		return nil, i.critical(ctx, inbox.ID, fmt.Errorf("reconcile extraction: %w", err))
	}

	log.Info().Str("display_name", inbox.DisplayName).Msg("document ingested")
	return &IngestResult{InboxID: inbox.ID, Success: true, Status: domain.InboxPending}, nil
}

// critical handles errors that mean the record cannot reach a well-defined
// state: best-effort flip to FAILED, then propagate.
func (i *Ingestor) critical(ctx context.Context, inboxID string, err error) error {
	if statusErr := i.store.SetInboxStatus(ctx, inboxID, domain.InboxFailed); statusErr != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(statusErr).Str("inbox_id", inboxID).
			Msg("failed to mark inbox record as failed")
	}
	return err
}

func retrievalPermanent(err error) bool {
	var re *objstore.RetrievalError
	if errors.As(err, &re) {
		return re.Permanent()
	}
	return false
}

func classifyParseError(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "document parsing timed out"
	case errors.Is(err, docparse.ErrInvalidFormat):
		return "document format could not be understood"
	default:
		return "document parsing failed: " + err.Error()
	}
}
