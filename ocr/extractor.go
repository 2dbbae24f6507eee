// Package ocr turns certificate scans into draft field values: an external
// oracle reads the text, a fixed list of label patterns picks the fields.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/quickcert/certbackend/models"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNoFile         = errors.New("no file uploaded")
	ErrNoTextDetected = errors.New("no text found in image")
	ErrOracle         = errors.New("ocr oracle failed")
)

var (
	extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quickcert_ocr_extractions_total",
			Help: "OCR extractions by outcome.",
		},
		[]string{"outcome"},
	)

	oracleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quickcert_ocr_oracle_duration_seconds",
			Help:    "Latency of OCR oracle calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
)

// Oracle reads all text from an image.
type Oracle interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

type Extractor struct {
	oracle Oracle
	fields []Field
	labels *regexp.Regexp
}

// NewExtractor uses DefaultFields when no fields are given.
func NewExtractor(oracle Oracle, fields ...Field) *Extractor {
	if len(fields) == 0 {
		fields = DefaultFields()
	}
	return &Extractor{oracle: oracle, fields: fields, labels: labelMatcher(fields)}
}

// Extract sends the image to the oracle and parses the text it returns.
// Fields that do not match stay empty; that is not an error.
func (e *Extractor) Extract(ctx context.Context, image []byte) (models.DraftExtraction, error) {
	if len(image) == 0 {
		extractionsTotal.WithLabelValues("no_file").Inc()
		return models.DraftExtraction{}, ErrNoFile
	}

	start := time.Now()
	text, err := e.oracle.DetectText(ctx, image)
	oracleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		extractionsTotal.WithLabelValues("oracle_error").Inc()
		return models.DraftExtraction{}, fmt.Errorf("%w: %v", ErrOracle, err)
	}
	if strings.TrimSpace(text) == "" {
		extractionsTotal.WithLabelValues("no_text").Inc()
		return models.DraftExtraction{}, ErrNoTextDetected
	}

	extractionsTotal.WithLabelValues("ok").Inc()
	return models.DraftExtraction{
		RawText:           text,
		CertificateFields: e.Parse(text),
	}, nil
}

// Parse runs every field pattern over text.
func (e *Extractor) Parse(text string) models.CertificateFields {
	text = norm.NFC.String(text)

	var out models.CertificateFields
	for _, f := range e.fields {
		if v := f.find(text); v != "" {
			f.Assign(&out, cleanValue(v, e.labels))
		}
	}
	return out
}
