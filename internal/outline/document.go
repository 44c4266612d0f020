package outline

import (
	"path/filepath"
	"strings"
	"time"
)

// Tier and method names recorded on documents and attempts.
const (
	MethodTabularAdaptive       = "tabular_adaptive"
	MethodMultilineDotted       = "multiline_dotted"
	MethodSingleLineDotted      = "single_line_dotted"
	MethodSingleLineSpaced      = "single_line_spaced"
	MethodVision                = "vision"
	MethodScramble              = "scramble"
	MethodScrambleStructureOnly = "scramble_structure_only"
	MethodNoOutline             = "no_outline"
)

// Tier names identify a cascade stage independent of the parser that won.
const (
	TierPatternPrimary   = "pattern_primary"
	TierPatternSecondary = "pattern_secondary"
	TierPatternOCR       = "pattern_ocr"
	TierVision           = "vision"
	TierScramble         = "scramble"
)

// Outcome is the result of a single tier attempt.
type Outcome string

const (
	OutcomeAccepted       Outcome = "accepted"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeNoBoundary     Outcome = "no_boundary"
	OutcomeFailed         Outcome = "failed"
	OutcomeTimeout        Outcome = "timeout"
	OutcomeSkipped        Outcome = "skipped"
)

// TierAttempt records one tier tried while extracting a document's outline.
type TierAttempt struct {
	Tier       string        `json:"tier" yaml:"tier"`
	Method     string        `json:"method,omitempty" yaml:"method,omitempty"`
	Outcome    Outcome       `json:"outcome" yaml:"outcome"`
	Entries    int           `json:"entries" yaml:"entries"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// ExtractionResult is the output of one tier.
type ExtractionResult struct {
	Entries    []TOCEntry `json:"entries" yaml:"entries"`
	Method     string     `json:"method" yaml:"method"`
	Confidence float64    `json:"confidence" yaml:"confidence"`
}

// Document is one source file and its extracted outline.
type Document struct {
	ID              string        `json:"id" yaml:"id"`
	CollectionID    string        `json:"collection_id,omitempty" yaml:"collection_id,omitempty"`
	Path            string        `json:"path" yaml:"path"`
	Filename        string        `json:"filename" yaml:"filename"`
	SizeBytes       int64         `json:"size_bytes" yaml:"size_bytes"`
	TotalPages      int           `json:"total_pages" yaml:"total_pages"`
	Scanned         bool          `json:"scanned" yaml:"scanned"`
	PublicationDate *time.Time    `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	Method          string        `json:"method" yaml:"method"`
	Confidence      float64       `json:"confidence" yaml:"confidence"`
	LowConfidence   bool          `json:"low_confidence,omitempty" yaml:"low_confidence,omitempty"`
	Entries         []TOCEntry    `json:"entries" yaml:"entries"`
	Attempts        []TierAttempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	RunID           string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	ExtractedAt     time.Time     `json:"extracted_at" yaml:"extracted_at"`
}

// NewDocument creates a document record for a file on disk.
// The ID is the path relative to root with forward slashes, or the base
// name when root is empty.
func NewDocument(root, path string, size int64) *Document {
	id := filepath.Base(path)
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
			id = filepath.ToSlash(rel)
		}
	}
	return &Document{
		ID:        id,
		Path:      path,
		Filename:  filepath.Base(path),
		SizeBytes: size,
	}
}

// HasOutline reports whether an outline was accepted for the document.
func (d *Document) HasOutline() bool {
	return d.Method != "" && d.Method != MethodNoOutline && len(d.Entries) > 0
}

// Accept stores the accepted result on the document.
func (d *Document) Accept(res ExtractionResult) {
	d.Method = res.Method
	d.Entries = res.Entries
	d.Confidence = res.Confidence
}

// MarkNoOutline records the terminal NoOutline state.
func (d *Document) MarkNoOutline() {
	d.Method = MethodNoOutline
	d.Entries = nil
	d.Confidence = 0
}

// Record appends a tier attempt to the document's provenance.
func (d *Document) Record(a TierAttempt) {
	d.Attempts = append(d.Attempts, a)
}
