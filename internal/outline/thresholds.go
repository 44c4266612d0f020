package outline

import "time"

// Extraction thresholds. Configurable copies live in Thresholds; these are
// the defaults and the boundary values tests target.
const (
	// MinEntries is the number of entries a tier must produce to count as
	// having found an outline. Two rows are too easily matched by chance in
	// ordinary body text.
	MinEntries = 3

	// AcceptConfidence is the confidence at or above which page values are
	// trusted for page-level segmentation downstream.
	AcceptConfidence = 0.6

	// VisionMinConfidence is the lower bar for the vision tier, whose
	// subsection pages routinely end up as ranges after repair.
	VisionMinConfidence = 0.3

	// PageCeiling bounds bare integers accepted as page numbers. Larger
	// values in outline rows are almost always years or report codes.
	PageCeiling = 500

	// ScannedCharThreshold is the per-page character count below which a
	// sampled page counts as image-only.
	ScannedCharThreshold = 100

	// ClassifierSamplePages is how many leading pages the classifier samples.
	ClassifierSamplePages = 3

	// BoundaryScanLines limits how far into the front matter the locator
	// looks, and how far past the start an outline may extend.
	BoundaryScanLines = 200

	// BoundaryWindow is the sliding window used by the structural fallback.
	BoundaryWindow = 5

	// BoundaryWindowHits is how many numbered lines a window needs.
	BoundaryWindowHits = 3

	// MultilineLookahead is how many non-blank lines may separate a number
	// from its title in the multi-line dotted layout.
	MultilineLookahead = 5

	// FrontMatterPages is how many leading pages are linearized for
	// boundary detection.
	FrontMatterPages = 8

	// TierTimeout is the hard limit on a single LLM or VLM tier attempt.
	TierTimeout = 45 * time.Second
)

// Thresholds is the runtime-configurable set of extraction thresholds.
type Thresholds struct {
	MinEntries          int           `json:"min_entries" yaml:"min_entries"`
	AcceptConfidence    float64       `json:"accept_confidence" yaml:"accept_confidence"`
	VisionMinConfidence float64       `json:"vision_min_confidence" yaml:"vision_min_confidence"`
	PageCeiling         int           `json:"page_ceiling" yaml:"page_ceiling"`
	ScannedChars        int           `json:"scanned_chars" yaml:"scanned_chars"`
	SamplePages         int           `json:"sample_pages" yaml:"sample_pages"`
	FrontMatterPages    int           `json:"front_matter_pages" yaml:"front_matter_pages"`
	TierTimeout         time.Duration `json:"tier_timeout" yaml:"tier_timeout"`
	ConstrainedRetry    bool          `json:"constrained_retry" yaml:"constrained_retry"`
}

// DefaultThresholds returns the compiled-in thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinEntries:          MinEntries,
		AcceptConfidence:    AcceptConfidence,
		VisionMinConfidence: VisionMinConfidence,
		PageCeiling:         PageCeiling,
		ScannedChars:        ScannedCharThreshold,
		SamplePages:         ClassifierSamplePages,
		FrontMatterPages:    FrontMatterPages,
		TierTimeout:         TierTimeout,
	}
}

// Normalize fills zero fields with defaults and clamps the sample size.
func (t Thresholds) Normalize() Thresholds {
	d := DefaultThresholds()
	if t.MinEntries <= 0 {
		t.MinEntries = d.MinEntries
	}
	if t.AcceptConfidence <= 0 || t.AcceptConfidence > 1 {
		t.AcceptConfidence = d.AcceptConfidence
	}
	if t.VisionMinConfidence <= 0 || t.VisionMinConfidence > 1 {
		t.VisionMinConfidence = d.VisionMinConfidence
	}
	if t.PageCeiling <= 0 {
		t.PageCeiling = d.PageCeiling
	}
	if t.ScannedChars <= 0 {
		t.ScannedChars = d.ScannedChars
	}
	if t.SamplePages <= 0 {
		t.SamplePages = d.SamplePages
	}
	if t.SamplePages > ClassifierSamplePages {
		t.SamplePages = ClassifierSamplePages
	}
	if t.FrontMatterPages <= 0 {
		t.FrontMatterPages = d.FrontMatterPages
	}
	if t.TierTimeout <= 0 {
		t.TierTimeout = d.TierTimeout
	}
	return t
}
