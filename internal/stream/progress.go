package stream

import (
	"math"
	"praid/internal/utils"
	"strings"
)

// Scheme selects how producer percentages map onto the displayed bar.
type Scheme int

const (
	// SchemeImage reserves 0-20 for the upload transfer and compresses processing into 20-100.
	SchemeImage Scheme = iota
	// SchemePDF passes producer percentages through, clamped to 0-100.
	SchemePDF
)

const (
	PrefixCaption    = "CAPTION_CHUNK:"
	PrefixOCR        = "OCR_TEXT:"
	PrefixStructured = "STRUCTURED_CHUNK:"
)

const (
	transferShare   = 20.0
	processingShare = 80.0

	// The producer reports the caption phase between these percentages.
	captionPhaseStart = 30.0
	captionPhaseSpan  = 30.0

	structuredBandStart = 50.0
	structuredBandSpan  = 50.0
)

// Length heuristics for estimating streamed content completion. A caption is treated
// as finished at CaptionWordTarget words, structured JSON at StructuredCharTarget characters.
var (
	CaptionWordTarget    = 30
	StructuredCharTarget = 2000
)

func (s Scheme) String() string {
	switch s {
	case SchemePDF:
		return "pdf"
	default:
		return "image"
	}
}

// Transfer maps the fraction of request bytes sent to a displayed percentage.
func (s Scheme) Transfer(fraction float64) float64 {
	if s == SchemePDF {
		return 0
	}
	return clamp(fraction, 0, 1) * transferShare
}

// Processing maps a producer percentage to a displayed percentage.
func (s Scheme) Processing(percent float64) float64 {
	if s == SchemePDF {
		return clamp(percent, 0, 100)
	}
	return transferShare + clamp(percent, 0, 100)*processingShare/100
}

// CaptionEstimate guesses how complete a streamed caption is.
func CaptionEstimate(caption string) float64 {
	if CaptionWordTarget <= 0 {
		return 1
	}
	return math.Min(float64(utils.WordCount(caption))/float64(CaptionWordTarget), 1)
}

// StructuredEstimate guesses how complete streamed structured JSON is.
func StructuredEstimate(structured string) float64 {
	if StructuredCharTarget <= 0 {
		return 1
	}
	return math.Min(float64(utils.CharCount(structured))/float64(StructuredCharTarget), 1)
}

// Update is the composite state shown to the user after each event.
type Update struct {
	Scheme     string    `json:"scheme"`
	Percent    float64   `json:"percent"`
	Status     string    `json:"status,omitempty"`
	Caption    string    `json:"caption,omitempty"`
	OCRText    string    `json:"ocrText,omitempty"`
	Structured *Rendered `json:"structured,omitempty"`
}

// Tracker accumulates partial content and the displayed percentage for one stream.
// It belongs to a single operation and is not safe for concurrent use.
type Tracker struct {
	scheme     Scheme
	percent    float64
	status     string
	caption    strings.Builder
	ocr        strings.Builder
	structured strings.Builder
}

func NewTracker(scheme Scheme) *Tracker {
	return &Tracker{scheme: scheme}
}

func (t *Tracker) Scheme() Scheme {
	return t.scheme
}

// Transfer records upload progress. A non-positive total leaves the percentage as is.
func (t *Tracker) Transfer(sent, total int64) Update {
	if total > 0 {
		t.percent = t.scheme.Transfer(float64(sent) / float64(total))
	}
	t.status = "Uploading..."
	return t.Snapshot()
}

// Progress applies a progress event.
func (t *Tracker) Progress(event Event) Update {
	stage := event.Stage

	switch {
	case strings.HasPrefix(stage, PrefixCaption):
		t.caption.WriteString(strings.TrimPrefix(stage, PrefixCaption))
		estimate := CaptionEstimate(t.caption.String())
		t.percent = t.scheme.Processing(captionPhaseStart + estimate*captionPhaseSpan)
		t.status = "Generating caption..."

	case strings.HasPrefix(stage, PrefixOCR):
		t.ocr.WriteString(strings.TrimPrefix(stage, PrefixOCR))
		if event.Percent != nil {
			t.percent = t.scheme.Processing(*event.Percent)
		}

	case strings.HasPrefix(stage, PrefixStructured):
		t.structured.WriteString(strings.TrimPrefix(stage, PrefixStructured))
		estimate := StructuredEstimate(t.structured.String())
		t.percent = structuredBandStart + estimate*structuredBandSpan
		t.status = "Extracting structured data..."

	default:
		if event.Percent != nil {
			t.percent = t.scheme.Processing(*event.Percent)
		}
		if stage != "" {
			t.status = stage
		}
	}

	return t.Snapshot()
}

// Complete moves the bar to 100.
func (t *Tracker) Complete() Update {
	t.percent = 100
	t.status = "Complete"
	return t.Snapshot()
}

func (t *Tracker) Snapshot() Update {
	update := Update{
		Scheme:  t.scheme.String(),
		Percent: t.percent,
		Status:  t.status,
		Caption: t.caption.String(),
		OCRText: t.ocr.String(),
	}
	if t.structured.Len() > 0 {
		rendered := RenderPartialJSON(t.structured.String())
		update.Structured = &rendered
	}
	return update
}

func (t *Tracker) Caption() string {
	return t.caption.String()
}

func (t *Tracker) OCRText() string {
	return t.ocr.String()
}

func (t *Tracker) Structured() string {
	return t.structured.String()
}

func clamp(value, low, high float64) float64 {
	return math.Max(low, math.Min(high, value))
}
