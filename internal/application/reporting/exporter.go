package reporting

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/DTI-Insight/internal/application/board"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/DTI-Insight/internal/infrastructure/storage/minio"
	"github.com/turtacn/DTI-Insight/pkg/errors"
)

// Artifact file names.
const (
	BoardDocument     = "board.json"
	AffinityChartFile = "affinity.png"
	RuleChartFile     = "rules.png"
)

// Event topic and type for completed exports.
const (
	DefaultExportedTopic = "dti.board.exported"
	EventExported        = "board.exported"
)

const (
	contentTypeJSON    = "application/json"
	contentTypePNG     = "image/png"
	contentTypeParquet = "application/vnd.apache.parquet"
)

// Artifact is one exported file.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// ArtifactOptions selects what a board export contains. The board document
// is always included.
type ArtifactOptions struct {
	Charts  bool
	Parquet bool
	// HTML adds board.html, embedding the charts when Charts is set.
	HTML        bool
	ChartWidth  int
	ChartHeight int
}

// DefaultArtifactOptions exports everything.
func DefaultArtifactOptions() ArtifactOptions {
	return ArtifactOptions{Charts: true, Parquet: true, HTML: true}
}

// Artifacts builds the export files for b in a stable order. Charts are
// skipped for an empty board.
func Artifacts(b *board.Board, opts ArtifactOptions) ([]Artifact, error) {
	if b == nil {
		return nil, errors.New(errors.ErrCodeBadRequest, "board is required")
	}
	doc, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode board")
	}
	out := []Artifact{{Name: BoardDocument, ContentType: contentTypeJSON, Data: doc}}

	var aff, rules []byte
	if opts.Charts && len(b.Cards) > 0 {
		if aff, err = AffinityChart(b.Projection, opts.ChartWidth, opts.ChartHeight); err != nil {
			return nil, err
		}
		if rules, err = RuleScoreChart(b.Projection, opts.ChartWidth, opts.ChartHeight); err != nil {
			return nil, err
		}
		out = append(out,
			Artifact{Name: AffinityChartFile, ContentType: contentTypePNG, Data: aff},
			Artifact{Name: RuleChartFile, ContentType: contentTypePNG, Data: rules},
		)
	}

	if opts.Parquet {
		files, err := ParquetFiles(b.Projection)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(files))
		for name := range files {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, Artifact{Name: name, ContentType: contentTypeParquet, Data: files[name]})
		}
	}

	if opts.HTML {
		page, err := BoardReport(b, aff, rules)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Name: BoardReportFile, ContentType: contentTypeHTML, Data: page})
	}
	return out, nil
}

// ObjectStore is the bucket the exporter writes into.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// EventPublisher emits the export notification.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, eventType, key string, payload interface{}) error
}

// ExportedEvent is the payload of board.exported.
type ExportedEvent struct {
	PassID     string    `json:"pass_id"`
	Bucket     string    `json:"bucket"`
	Keys       []string  `json:"keys"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportResult lists the uploaded objects of one export. URLs maps each key
// to a presigned download link; keys that could not be signed are absent.
type ExportResult struct {
	PassID string            `json:"passId"`
	Bucket string            `json:"bucket"`
	Keys   []string          `json:"keys"`
	URLs   map[string]string `json:"urls,omitempty"`
}

// Exporter uploads board artifacts to object storage.
type Exporter struct {
	store     ObjectStore
	publisher EventPublisher
	topic     string
	opts      ArtifactOptions
	logger    logging.Logger
	metrics   *prometheus.BoardMetrics
	now       func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportPublisher announces each export on topic.
func WithExportPublisher(p EventPublisher, topic string) ExporterOption {
	return func(e *Exporter) {
		e.publisher = p
		if topic != "" {
			e.topic = topic
		}
	}
}

// WithArtifactOptions overrides what is exported.
func WithArtifactOptions(o ArtifactOptions) ExporterOption {
	return func(e *Exporter) { e.opts = o }
}

func WithExportLogger(l logging.Logger) ExporterOption { return func(e *Exporter) { e.logger = l } }

func WithExportMetrics(m *prometheus.BoardMetrics) ExporterOption {
	return func(e *Exporter) { e.metrics = m }
}

func WithExportClock(now func() time.Time) ExporterOption { return func(e *Exporter) { e.now = now } }

// NewExporter creates an exporter writing into store.
func NewExporter(store ObjectStore, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		store:  store,
		topic:  DefaultExportedTopic,
		opts:   DefaultArtifactOptions(),
		logger: logging.NewNopLogger(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Export uploads the artifacts of b under boards/<passID>/ and publishes
// board.exported. A publish failure is logged; the upload still counts.
func (e *Exporter) Export(ctx context.Context, b *board.Board) (*ExportResult, error) {
	start := e.now()
	if b == nil || b.PassID == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "board with pass id is required")
	}
	log := logging.FromContext(ctx, e.logger).With(logging.String("pass_id", b.PassID))

	artifacts, err := Artifacts(b, e.opts)
	if err != nil {
		prometheus.RecordExport(e.metrics, "board", false, time.Since(start))
		return nil, err
	}

	keys := make([]string, len(artifacts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, a := range artifacts {
		i, a := i, a
		g.Go(func() error {
			key, err := e.store.Put(gctx, minio.BoardKey(b.PassID, a.Name), a.Data, a.ContentType)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeExportUploadFailed, "upload "+a.Name)
			}
			keys[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		prometheus.RecordExport(e.metrics, "board", false, time.Since(start))
		log.Error("board export failed", logging.Err(err))
		return nil, err
	}

	res := &ExportResult{PassID: b.PassID, Bucket: e.store.Bucket(), Keys: keys, URLs: e.sign(ctx, keys, log)}
	if e.publisher != nil {
		ev := ExportedEvent{PassID: b.PassID, Bucket: res.Bucket, Keys: keys, ExportedAt: e.now().UTC()}
		if err := e.publisher.PublishEvent(ctx, e.topic, EventExported, b.PassID, ev); err != nil {
			log.Warn("board exported event not published", logging.Err(err))
		}
	}
	prometheus.RecordExport(e.metrics, "board", true, time.Since(start))
	log.Info("board exported", logging.Int("objects", len(keys)), logging.String("bucket", res.Bucket))
	return res, nil
}

// Lookup lists what an earlier export of passID left in the bucket.
func (e *Exporter) Lookup(ctx context.Context, passID string) (*ExportResult, error) {
	if passID == "" || strings.Contains(passID, "/") {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "invalid pass id %q", passID)
	}
	keys, err := e.store.Keys(ctx, minio.BoardKey(passID, "")+"/")
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errors.Newf(errors.ErrCodeNotFound, "no export for pass %s", passID)
	}
	sort.Strings(keys)
	log := logging.FromContext(ctx, e.logger).With(logging.String("pass_id", passID))
	return &ExportResult{PassID: passID, Bucket: e.store.Bucket(), Keys: keys, URLs: e.sign(ctx, keys, log)}, nil
}

func (e *Exporter) sign(ctx context.Context, keys []string, log logging.Logger) map[string]string {
	urls := make(map[string]string, len(keys))
	for _, k := range keys {
		u, err := e.store.URL(ctx, k)
		if err != nil {
			log.Warn("presign export object failed", logging.String("key", k), logging.Err(err))
			continue
		}
		urls[k] = u
	}
	if len(urls) == 0 {
		return nil
	}
	return urls
}

//Personal.AI order the ending
