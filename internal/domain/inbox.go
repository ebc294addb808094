package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InboxStatus is the processing state of an ingested document.
// NEW -> PROCESSING -> PENDING on success or recoverable parse failure;
// FAILED and FAILED_RETRIEVAL are terminal. No task moves a record backward.
type InboxStatus string

const (
	InboxNew             InboxStatus = "NEW"
	InboxProcessing      InboxStatus = "PROCESSING"
	InboxPending         InboxStatus = "PENDING"
	InboxFailed          InboxStatus = "FAILED"
	InboxFailedRetrieval InboxStatus = "FAILED_RETRIEVAL"
)

// Inbox tracks one uploaded document through ingestion. Extracted fields are
// best-effort: a parse failure leaves them empty and the diagnostics in Meta,
// while the record still advances to PENDING so the upload stays visible.
type Inbox struct {
	ID     string
	TeamID string

	FilePath    string
	FileName    string
	ContentType string
	Size        int64

	Status InboxStatus

	// Fields extracted by the document-understanding service.
	DisplayName string
	Type        string
	Amount      *decimal.Decimal
	Currency    string
	Date        *time.Time
	Website     string
	Description string

	// Meta holds opaque error diagnostics, e.g. {"processingError": "..."}.
	Meta map[string]any

	CreatedAt time.Time
}
