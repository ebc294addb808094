package docparse

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidFormat marks a document the parser could not make sense of:
// malformed model output or fields of the wrong shape.
var ErrInvalidFormat = errors.New("document format not understood")

// Extraction holds the structured fields pulled out of one financial
// document. All fields are best-effort; absent values stay zero.
type Extraction struct {
	Name        string
	Type        string
	Amount      *decimal.Decimal
	Currency    string
	Date        *time.Time
	Website     string
	Description string
}

// Input is the document handed to the parser.
type Input struct {
	Content     []byte
	ContentType string
}

// Parser extracts structured fields from a document.
type Parser interface {
	Parse(ctx context.Context, in Input) (*Extraction, error)
}
