// Package ocr reads betting amounts off the analyzed table image with
// Google Cloud Vision. The detector model only knows cards and stack
// markers; pot and to-call text goes through TEXT_DETECTION instead.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/feltvision/tablesight/internal/log"
	"github.com/feltvision/tablesight/pkg/pipeline"
	"github.com/feltvision/tablesight/pkg/table"
)

// Config holds the OCR zones and client settings. Zones are normalized
// table coordinates, matching the skin rects in the table config.
type Config struct {
	// CredentialsFile points at a service account key. Empty uses
	// application default credentials.
	CredentialsFile string     `json:"credentials_file"`
	PotZone         table.Rect `json:"pot_zone"`
	ToCallZone      table.Rect `json:"to_call_zone"`

	// MinIntervalMS rate-limits API calls; reads inside the window
	// return the cached amounts. Zero disables the limit.
	MinIntervalMS int `json:"min_interval_ms"`
}

// DefaultConfig returns zones for a standard table layout: pot text
// above the board, to-call on the action row.
func DefaultConfig() Config {
	return Config{
		PotZone:       table.Rect{X1: 0.30, Y1: 0.26, X2: 0.70, Y2: 0.44},
		ToCallZone:    table.Rect{X1: 0.55, Y1: 0.72, X2: 1.00, Y2: 0.95},
		MinIntervalMS: 500,
	}
}

// Verify Reader satisfies the amounts stage at compile time.
var _ pipeline.AmountReader = (*Reader)(nil)

// Reader extracts pot and to-call amounts from table frames.
type Reader struct {
	client *gvision.ImageAnnotatorClient
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	lastRead   time.Time
	lastPot    float64
	lastToCall float64
}

// NewReader creates a Cloud Vision backed reader.
func NewReader(ctx context.Context, cfg Config) (*Reader, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gvision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create vision client: %w", err)
	}
	return &Reader{client: client, cfg: cfg, logger: log.Component("ocr")}, nil
}

// Close releases the API client.
func (r *Reader) Close() error {
	return r.client.Close()
}

// ReadAmounts runs text detection over the frame and parses the pot
// and to-call amounts from their configured zones. A zone with no
// readable amount yields zero for that value.
func (r *Reader) ReadAmounts(ctx context.Context, jpeg []byte, width, height int) (float64, float64, error) {
	if len(jpeg) == 0 || width < 1 || height < 1 {
		return 0, 0, nil
	}

	r.mu.Lock()
	if r.cfg.MinIntervalMS > 0 && !r.lastRead.IsZero() &&
		time.Since(r.lastRead) < time.Duration(r.cfg.MinIntervalMS)*time.Millisecond {
		pot, toCall := r.lastPot, r.lastToCall
		r.mu.Unlock()
		return pot, toCall, nil
	}
	r.mu.Unlock()

	words, err := r.annotate(ctx, jpeg)
	if err != nil {
		return 0, 0, err
	}

	pot, _ := ParseAmount(zoneText(words, r.cfg.PotZone, width, height))
	toCall, _ := ParseAmount(zoneText(words, r.cfg.ToCallZone, width, height))

	r.mu.Lock()
	r.lastRead = time.Now()
	r.lastPot, r.lastToCall = pot, toCall
	r.mu.Unlock()

	r.logger.Debug("amounts read", "pot", pot, "to_call", toCall)
	return pot, toCall, nil
}

// word is one text annotation with its pixel-space center.
type word struct {
	x, y float64
	text string
}

func (r *Reader) annotate(ctx context.Context, jpeg []byte) ([]word, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: jpeg},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_TEXT_DETECTION}},
		}},
	}
	resp, err := r.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision request: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	if apiErr := resp.Responses[0].Error; apiErr != nil {
		return nil, fmt.Errorf("vision: %s", apiErr.Message)
	}

	anns := resp.Responses[0].TextAnnotations
	if len(anns) < 2 {
		return nil, nil
	}

	// Entry 0 is the full text block; the rest are single words.
	words := make([]word, 0, len(anns)-1)
	for _, a := range anns[1:] {
		cx, cy, ok := polyCenter(a.BoundingPoly)
		if !ok {
			continue
		}
		words = append(words, word{x: cx, y: cy, text: a.Description})
	}
	return words, nil
}

func polyCenter(poly *visionpb.BoundingPoly) (float64, float64, bool) {
	if poly == nil || len(poly.Vertices) == 0 {
		return 0, 0, false
	}
	var sx, sy float64
	for _, v := range poly.Vertices {
		sx += float64(v.X)
		sy += float64(v.Y)
	}
	n := float64(len(poly.Vertices))
	return sx / n, sy / n, true
}

// zoneText collects the words whose centers fall in the zone, in
// reading order.
func zoneText(words []word, zone table.Rect, width, height int) string {
	if zone == (table.Rect{}) {
		return ""
	}
	var hits []word
	for _, w := range words {
		if zone.Contains(w.x/float64(width), w.y/float64(height)) {
			hits = append(hits, w)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].x < hits[j].x })

	parts := make([]string, len(hits))
	for i, w := range hits {
		parts[i] = w.text
	}
	return strings.Join(parts, " ")
}
