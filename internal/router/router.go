// Package router decides, per document, which extraction tiers to run and
// which result to keep.
//
// Native documents go through the pattern cascade against the primary text
// source and then the secondary one. Scanned documents try the vision tier
// first, then the cascade on OCR text, then the scramble reconstructor.
// Every candidate is validated before it is scored, and every tier tried is
// recorded on the document whether or not it won.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/folio/internal/boundary"
	"github.com/jackzampolin/folio/internal/category"
	"github.com/jackzampolin/folio/internal/classify"
	"github.com/jackzampolin/folio/internal/jobs"
	"github.com/jackzampolin/folio/internal/outline"
	"github.com/jackzampolin/folio/internal/patterns"
	"github.com/jackzampolin/folio/internal/textsource"
	"github.com/jackzampolin/folio/internal/validate"
)

// Classifier decides whether a document is scanned.
type Classifier interface {
	Classify(ctx context.Context, doc *outline.Document, src textsource.Source) (bool, error)
}

// VisionExtractor reads an outline from rendered pages.
type VisionExtractor interface {
	Extract(ctx context.Context, doc *outline.Document, page int) (outline.ExtractionResult, error)
}

// Reconstructor rebuilds an outline from scrambled text.
type Reconstructor interface {
	Reconstruct(ctx context.Context, block []string) (outline.ExtractionResult, error)
}

// Controller runs the tier cascade for one document at a time. It is safe
// for concurrent use; per-document state lives on the Document.
type Controller struct {
	Classifier Classifier
	Primary    textsource.Source
	Secondary  textsource.Source
	OCR        textsource.Source
	Cascade    *patterns.Cascade
	Validator  *validate.Validator
	Vision     VisionExtractor // optional
	Scramble   Reconstructor   // optional
	Gate       *jobs.Gate      // optional; nil runs inference unguarded
	Category   *category.Lookup
	Logger     *slog.Logger

	mu         sync.RWMutex
	thresholds outline.Thresholds
}

// New creates a Controller with the standard classifier, cascade and a
// validator without constrained retry. Inference tiers are attached by
// setting the exported fields.
func New(primary, secondary textsource.Source, t outline.Thresholds, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		Primary:   primary,
		Secondary: secondary,
		Validator: validate.New(nil, logger),
		Logger:    logger,
	}
	c.SetThresholds(t)
	return c
}

// SetThresholds swaps the active thresholds and rebuilds the classifier and
// cascade that depend on them. Extractions already running keep the values
// they started with.
func (c *Controller) SetThresholds(t outline.Thresholds) {
	t = t.Normalize()
	cascade := patterns.NewCascade(t.PageCeiling)
	cascade.MinEntries = t.MinEntries

	c.mu.Lock()
	defer c.mu.Unlock()
	c.thresholds = t
	c.Cascade = cascade
	c.Classifier = classify.New(t)
}

// Thresholds returns the active thresholds.
func (c *Controller) Thresholds() outline.Thresholds {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thresholds.Normalize()
}

// run carries the per-extraction snapshot of controller settings.
type run struct {
	*Controller
	doc     *outline.Document
	th      outline.Thresholds
	cascade *patterns.Cascade
	logger  *slog.Logger
}

func (c *Controller) snapshot(doc *outline.Document) *run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cascade := c.Cascade
	if cascade == nil {
		cascade = patterns.NewCascade(c.thresholds.PageCeiling)
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &run{
		Controller: c,
		doc:        doc,
		th:         c.thresholds.Normalize(),
		cascade:    cascade,
		logger:     logger.With("doc_id", doc.ID),
	}
}

// ExtractOutline classifies doc, runs the tiers for its type and stores the
// accepted outline (or the NoOutline state) on it. The returned error is
// non-nil only when the document cannot be read or ctx is cancelled; tier
// failures are recorded in doc.Attempts.
func (c *Controller) ExtractOutline(ctx context.Context, doc *outline.Document, totalPages int) (*outline.Document, error) {
	if doc == nil {
		return nil, errors.New("router: nil document")
	}
	if totalPages <= 0 {
		return nil, fmt.Errorf("%w: %s: page count %d", outline.ErrUnreadable, doc.ID, totalPages)
	}

	r := c.snapshot(doc)
	doc.TotalPages = totalPages
	doc.RunID = uuid.NewString()
	doc.Attempts = nil
	doc.LowConfidence = false
	doc.MarkNoOutline()

	classifier := c.classifier()
	scanned, err := classifier.Classify(ctx, doc, c.Primary)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("extract %s: %w", doc.ID, ctxErr)
		}
		if !errors.Is(err, outline.ErrUnreadable) {
			err = fmt.Errorf("%w: %s: %v", outline.ErrUnreadable, doc.ID, err)
		}
		r.logger.Warn("document unreadable", "error", err)
		return nil, err
	}
	doc.Scanned = scanned
	r.logger.Debug("classified document", "scanned", scanned, "total_pages", totalPages)

	var accepted bool
	if scanned {
		accepted = r.scanned(ctx)
	} else {
		accepted = r.native(ctx)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract %s: %w", doc.ID, err)
	}

	if !accepted {
		doc.MarkNoOutline()
	} else {
		c.Category.Apply(doc.CollectionID, doc.Entries)
		if v := outline.OrderViolations(doc.Entries); len(v) > 0 {
			r.logger.Debug("outline numbering out of order", "violations", len(v), "first", v[0].Number, "after", v[0].Previous)
		}
	}
	doc.ExtractedAt = time.Now().UTC()

	r.logger.Info("outline extracted",
		"method", doc.Method,
		"entries", len(doc.Entries),
		"confidence", doc.Confidence,
		"low_confidence", doc.LowConfidence,
		"attempts", len(doc.Attempts))
	return doc, nil
}

func (c *Controller) classifier() Classifier {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Classifier
}

// native runs the pattern cascade against the primary and then the
// secondary text source.
func (r *run) native(ctx context.Context) bool {
	tiers := []struct {
		name string
		src  textsource.Source
	}{
		{outline.TierPatternPrimary, r.Primary},
		{outline.TierPatternSecondary, r.Secondary},
	}
	for _, t := range tiers {
		if t.src == nil {
			r.skip(t.name, "no text source configured")
			continue
		}
		start := time.Now()
		fm, err := r.frontMatter(ctx, t.src)
		if err != nil {
			r.fail(t.name, start, err)
			continue
		}
		if !fm.found {
			r.record(outline.TierAttempt{Tier: t.name, Outcome: outline.OutcomeNoBoundary, Duration: time.Since(start)})
			continue
		}
		if r.pattern(ctx, t.name, fm.block, start) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

// scanned tries vision on the estimated outline page, then the cascade on
// OCR text, then the scramble reconstructor.
func (r *run) scanned(ctx context.Context) bool {
	var (
		fm     = frontMatter{page: 1}
		ocrErr error
		ocrDur time.Duration
	)
	if r.OCR != nil {
		start := time.Now()
		fm, ocrErr = r.frontMatter(ctx, r.OCR)
		ocrDur = time.Since(start)
		if fm.page <= 0 {
			fm.page = 1
		}
	}
	if ctx.Err() != nil {
		return false
	}

	if r.visionTier(ctx, fm.page) {
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	switch {
	case r.OCR == nil:
		r.skip(outline.TierPatternOCR, "no OCR source configured")
	case ocrErr != nil:
		r.record(outline.TierAttempt{Tier: outline.TierPatternOCR, Outcome: outline.OutcomeFailed, Error: ocrErr.Error(), Duration: ocrDur})
	case !fm.found:
		r.record(outline.TierAttempt{Tier: outline.TierPatternOCR, Outcome: outline.OutcomeNoBoundary, Duration: ocrDur})
	default:
		if r.pattern(ctx, outline.TierPatternOCR, fm.block, time.Now().Add(-ocrDur)) {
			return true
		}
	}
	if !fm.found {
		r.skip(outline.TierScramble, "no outline boundary in OCR text")
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	return r.scrambleTier(ctx, fm.block)
}

// frontMatter is the located outline block of a document's leading pages.
type frontMatter struct {
	block []string
	found bool
	page  int // 1-based page the block starts on
}

// frontMatter reads the leading pages from src and locates the outline
// block in them.
func (r *run) frontMatter(ctx context.Context, src textsource.Source) (frontMatter, error) {
	last := min(r.th.FrontMatterPages, r.doc.TotalPages)
	pages, err := src.PageTexts(ctx, r.doc.Path, 1, last)
	if err != nil {
		return frontMatter{}, err
	}
	lines, pageLines := boundary.Linearize(pages)
	if r.doc.PublicationDate == nil {
		r.doc.PublicationDate = outline.DetectPublicationDate(lines)
	}

	start, end := boundary.Locate(lines)
	if start < 0 {
		return frontMatter{}, nil
	}
	page := boundary.PageOf(pageLines, start)
	r.logger.Debug("located outline boundary", "start", start, "end", end, "page", page)
	return frontMatter{block: boundary.Block(lines, start, end), found: true, page: page}, nil
}

// pattern runs the cascade on block and accepts it on entry count.
func (r *run) pattern(ctx context.Context, tier string, block []string, start time.Time) bool {
	entries, method := r.cascade.Extract(block)
	if len(entries) < r.th.MinEntries {
		r.record(outline.TierAttempt{
			Tier:     tier,
			Method:   method,
			Outcome:  outline.OutcomeBelowThreshold,
			Entries:  len(entries),
			Duration: time.Since(start),
		})
		return false
	}
	res := r.validated(ctx, block, outline.ExtractionResult{Entries: entries, Method: method})
	r.accept(tier, res, start)
	return true
}

// visionTier accepts the vision result at the lower vision confidence bar.
func (r *run) visionTier(ctx context.Context, page int) bool {
	if r.Vision == nil {
		r.skip(outline.TierVision, "no vision extractor configured")
		return false
	}
	start := time.Now()
	var res outline.ExtractionResult
	err := r.infer(ctx, func(ctx context.Context) error {
		var err error
		res, err = r.Vision.Extract(ctx, r.doc, page)
		return err
	})
	if err != nil {
		r.fail(outline.TierVision, start, err)
		return false
	}
	if len(res.Entries) < r.th.MinEntries {
		r.record(outline.TierAttempt{
			Tier:     outline.TierVision,
			Method:   res.Method,
			Outcome:  outline.OutcomeBelowThreshold,
			Entries:  len(res.Entries),
			Duration: time.Since(start),
		})
		return false
	}

	res = r.validated(ctx, nil, res)
	if res.Confidence < r.th.VisionMinConfidence {
		r.record(outline.TierAttempt{
			Tier:       outline.TierVision,
			Method:     res.Method,
			Outcome:    outline.OutcomeBelowThreshold,
			Entries:    len(res.Entries),
			Confidence: res.Confidence,
			Duration:   time.Since(start),
		})
		return false
	}
	r.accept(outline.TierVision, res, start)
	return true
}

// scrambleTier accepts any reconstruction that reaches the entry count,
// including structure-only results.
func (r *run) scrambleTier(ctx context.Context, block []string) bool {
	if r.Scramble == nil {
		r.skip(outline.TierScramble, "no scramble reconstructor configured")
		return false
	}
	start := time.Now()
	var res outline.ExtractionResult
	err := r.infer(ctx, func(ctx context.Context) error {
		var err error
		res, err = r.Scramble.Reconstruct(ctx, block)
		return err
	})
	if err != nil {
		r.fail(outline.TierScramble, start, err)
		return false
	}
	if len(res.Entries) < r.th.MinEntries {
		r.record(outline.TierAttempt{
			Tier:     outline.TierScramble,
			Method:   res.Method,
			Outcome:  outline.OutcomeBelowThreshold,
			Entries:  len(res.Entries),
			Duration: time.Since(start),
		})
		return false
	}
	r.accept(outline.TierScramble, r.validated(ctx, block, res), start)
	return true
}

// infer runs fn through the gate under the tier timeout. The timeout starts
// once the gate admits the call.
func (r *run) infer(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.Gate.Do(ctx, func(ctx context.Context) error {
		tctx, cancel := context.WithTimeout(ctx, r.th.TierTimeout)
		defer cancel()
		err := fn(tctx)
		if err != nil && ctx.Err() == nil && errors.Is(tctx.Err(), context.DeadlineExceeded) && !errors.Is(err, outline.ErrTierTimeout) {
			return fmt.Errorf("%w after %s: %v", outline.ErrTierTimeout, r.th.TierTimeout, err)
		}
		return err
	})
}

// validated repairs res against the document's page count and rescores it.
func (r *run) validated(ctx context.Context, block []string, res outline.ExtractionResult) outline.ExtractionResult {
	v := r.Validator
	if v == nil {
		v = validate.New(nil, r.logger)
	}
	v = v.ForSource(block)
	if v.Retrier != nil {
		v.Retrier = &gatedRetrier{inner: v.Retrier, gate: r.Gate, timeout: r.th.TierTimeout}
	}

	entries, rep := v.Validate(ctx, res.Entries, r.doc.TotalPages)
	if rep.Violations() > 0 {
		r.logger.Debug("repaired outline pages",
			"method", res.Method,
			"r1", rep.R1, "r2", rep.R2, "r3", rep.R3,
			"downgraded", rep.Downgraded, "retried", rep.Retried)
	}
	res.Entries = entries
	res.Confidence = outline.Confidence(entries)
	return res
}

func (r *run) accept(tier string, res outline.ExtractionResult, start time.Time) {
	r.doc.Accept(res)
	r.doc.LowConfidence = res.Confidence < r.th.AcceptConfidence
	r.record(outline.TierAttempt{
		Tier:       tier,
		Method:     res.Method,
		Outcome:    outline.OutcomeAccepted,
		Entries:    len(res.Entries),
		Confidence: res.Confidence,
		Duration:   time.Since(start),
	})
}

func (r *run) fail(tier string, start time.Time, err error) {
	outcome := outline.OutcomeFailed
	switch {
	case errors.Is(err, outline.ErrTierTimeout), errors.Is(err, context.DeadlineExceeded):
		outcome = outline.OutcomeTimeout
	case errors.Is(err, outline.ErrTooFewEntries):
		outcome = outline.OutcomeBelowThreshold
	}
	r.record(outline.TierAttempt{
		Tier:     tier,
		Outcome:  outcome,
		Error:    err.Error(),
		Duration: time.Since(start),
	})
}

func (r *run) skip(tier, reason string) {
	r.record(outline.TierAttempt{Tier: tier, Outcome: outline.OutcomeSkipped, Error: reason})
}

func (r *run) record(a outline.TierAttempt) {
	r.doc.Record(a)
	level := slog.LevelDebug
	if a.Outcome == outline.OutcomeFailed || a.Outcome == outline.OutcomeTimeout {
		level = slog.LevelWarn
	}
	r.logger.Log(context.Background(), level, "tier attempt",
		"tier", a.Tier,
		"method", a.Method,
		"outcome", a.Outcome,
		"entries", a.Entries,
		"confidence", a.Confidence,
		"error", a.Error)
}
