// Package export turns annotated segmentation tasks into per-image tables of
// region geometry and intensity statistics.
//
// An Exporter walks tasks, annotations and results in input order. Each result
// that carries a brush mask or a polygon becomes one Row; anything else is
// skipped and counted in Stats. No per-region problem stops the batch: missing
// images only drop the intensity columns, and malformed payloads drop the
// region. The only fatal errors are unreadable input and cancellation.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/segexport/internal/imaging"
	"github.com/ironsheep/segexport/internal/mask"
	"github.com/ironsheep/segexport/internal/source"
	"github.com/ironsheep/segexport/internal/task"
)

// ImageSource resolves and opens image references. *source.Resolver
// implements it.
type ImageSource interface {
	Resolve(ctx context.Context, raw string) source.Source
	Open(ctx context.Context, src source.Source, allowRemote bool) (image.Image, error)
}

// Options configures an Exporter.
type Options struct {
	// ProjectID names the archive.
	ProjectID string

	// AllowRemoteFetch lets the image source download http(s) images.
	AllowRemoteFetch bool

	// Workers bounds how many annotations of one task run at once. Values
	// below 1 mean 1.
	Workers int

	// UseTextualOverrides reuses numeric textarea values as the gray mean.
	UseTextualOverrides bool

	// ImageFields maps a result's to_name to the task data key holding its
	// image.
	ImageFields map[string]string

	// DefaultImageField is used when to_name has no mapping.
	DefaultImageField string
}

// Stats counts what happened to every result of a run.
type Stats struct {
	Tasks       int `json:"tasks"`
	Annotations int `json:"annotations"`
	Results     int `json:"results"`
	Rows        int `json:"rows"`

	NoImage           int `json:"no_image"`
	Unrecognized      int `json:"unrecognized"`
	Duplicates        int `json:"duplicates"`
	SizeUnavailable   int `json:"size_unavailable"`
	DecodeFailed      int `json:"decode_failed"`
	ImagesUnavailable int `json:"images_unavailable"`
	OverridesUsed     int `json:"overrides_used"`
}

// Skipped returns the number of results that produced no row.
func (s Stats) Skipped() int {
	return s.NoImage + s.Unrecognized + s.Duplicates + s.SizeUnavailable + s.DecodeFailed
}

func (s *Stats) add(o Stats) {
	s.Tasks += o.Tasks
	s.Annotations += o.Annotations
	s.Results += o.Results
	s.Rows += o.Rows
	s.NoImage += o.NoImage
	s.Unrecognized += o.Unrecognized
	s.Duplicates += o.Duplicates
	s.SizeUnavailable += o.SizeUnavailable
	s.DecodeFailed += o.DecodeFailed
	s.ImagesUnavailable += o.ImagesUnavailable
	s.OverridesUsed += o.OverridesUsed
}

// Result is the outcome of a run.
type Result struct {
	RunID  string   `json:"run_id"`
	Tables []*Table `json:"tables"`
	Stats  Stats    `json:"stats"`

	// Warnings aggregates non-fatal problems (decode failures, unavailable
	// images). Use multierr.Errors to list them.
	Warnings error `json:"-"`
}

// Rows returns every row of every table in output order.
func (r *Result) Rows() []Row {
	var rows []Row
	for _, t := range r.Tables {
		rows = append(rows, t.Rows...)
	}
	return rows
}

// Exporter runs the export pipeline.
type Exporter struct {
	opts   Options
	images ImageSource
	logger *zap.Logger
}

// New creates an Exporter. A nil logger disables logging.
func New(opts Options, images ImageSource, logger *zap.Logger) *Exporter {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{opts: opts, images: images, logger: logger}
}

// Run exports every task yielded by it.
//
// Tasks are processed in order. The annotations of one task may be processed
// concurrently, but rows always come out in input order.
func (e *Exporter) Run(ctx context.Context, it task.Iterator) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	tables := newTableSet()
	logger := e.logger.With(zap.String("run_id", res.RunID))

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("export canceled: %w", err)
		}

		tk, err := it.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tasks: %w", err)
		}

		outs := e.exportTask(ctx, tk, logger)
		res.Stats.Tasks++
		for _, out := range outs {
			for _, row := range out.rows {
				tables.add(row)
			}
			res.Stats.add(out.stats)
			res.Warnings = multierr.Append(res.Warnings, out.warnings)
		}
	}

	res.Tables = tables.tables
	logger.Info("export finished",
		zap.Int("tasks", res.Stats.Tasks),
		zap.Int("rows", res.Stats.Rows),
		zap.Int("tables", len(res.Tables)),
		zap.Int("skipped", res.Stats.Skipped()),
		zap.Int("warnings", len(multierr.Errors(res.Warnings))),
	)
	return res, nil
}

// annotationOutput collects the rows of one annotation.
type annotationOutput struct {
	rows     []Row
	stats    Stats
	warnings error
}

func (o *annotationOutput) warn(err error) {
	o.warnings = multierr.Append(o.warnings, err)
}

func (e *Exporter) exportTask(ctx context.Context, tk task.Task, logger *zap.Logger) []annotationOutput {
	cache := imaging.NewImageCache()
	defer cache.Clear()

	outs := make([]annotationOutput, len(tk.Annotations))
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for i := range tk.Annotations {
		i := i
		g.Go(func() error {
			outs[i] = e.exportAnnotation(ctx, tk, tk.Annotations[i], cache, logger)
			return nil
		})
	}
	_ = g.Wait()
	return outs
}

// regionJob is one result that passed classification and dedup.
type regionJob struct {
	id        string
	anonymous bool
	shape     shape
	label     string
	src       source.Source
}

// annotationScope is the state shared by the results of one annotation.
type annotationScope struct {
	task        task.Task
	ann         task.Annotation
	cache       *imaging.ImageCache
	labels      map[string]string
	overrides   OverrideLookup
	unavailable map[string]bool
	processed   map[string]bool
	logger      *zap.Logger
}

func (e *Exporter) exportAnnotation(ctx context.Context, tk task.Task, ann task.Annotation, cache *imaging.ImageCache, logger *zap.Logger) annotationOutput {
	out := annotationOutput{stats: Stats{Annotations: 1}}
	scope := &annotationScope{
		task:        tk,
		ann:         ann,
		cache:       cache,
		labels:      prescanLabels(ann.Result),
		overrides:   NoOverrides,
		unavailable: make(map[string]bool),
		processed:   make(map[string]bool),
		logger:      logger.With(zap.String("task", tk.ID.String()), zap.String("annotation", ann.ID.String())),
	}
	if e.opts.UseTextualOverrides {
		scope.overrides = TextualOverrides(ann.Result)
	}

	for i, res := range ann.Result {
		out.stats.Results++
		e.exportResult(ctx, scope, i, res, &out)
	}
	return out
}

// exportResult turns one result into at most one row. A panic while handling
// the result is recovered and counted as a decode failure.
func (e *Exporter) exportResult(ctx context.Context, sc *annotationScope, i int, res task.Result, out *annotationOutput) {
	defer func() {
		if r := recover(); r != nil {
			out.stats.DecodeFailed++
			err := fmt.Errorf("task %s annotation %s result %d: panic: %v", sc.task.ID, sc.ann.ID, i, r)
			out.warn(err)
			sc.logger.Error("region failed", zap.Int("result", i), zap.Error(err), zap.Stack("stack"))
		}
	}()

	ref, ok := e.imageRef(sc.task.Data, res.ToName)
	if !ok {
		out.stats.NoImage++
		sc.logger.Debug("skip region", zap.Int("result", i), zap.Error(ErrNoImageReference))
		return
	}

	p := decodePayload(res.Value)
	sh, ownLabel, err := classify(res.Type, p)
	if err != nil {
		out.stats.Unrecognized++
		return
	}

	job := regionJob{shape: sh, label: ownLabel}
	job.id, job.anonymous = regionID(res, i)
	if !job.anonymous && sc.processed[job.id] {
		out.stats.Duplicates++
		return
	}
	if job.label == "" && !job.anonymous {
		job.label = sc.labels[job.id]
	}
	job.src = e.images.Resolve(ctx, ref)
	rlog := sc.logger.With(zap.String("region", job.id))

	width, height := explicitSize(res, p)
	if width == 0 || height == 0 {
		if img, err := e.load(ctx, sc.cache, job.src); err == nil {
			b := img.Bounds()
			width, height = b.Dx(), b.Dy()
		}
	}
	if width <= 0 || height <= 0 {
		out.stats.SizeUnavailable++
		rlog.Debug("skip region", zap.Error(ErrSizeUnavailable))
		return
	}

	m, points, err := rasterize(job.shape, width, height)
	if err != nil {
		out.stats.DecodeFailed++
		out.warn(fmt.Errorf("task %s annotation %s region %s: %w", sc.task.ID, sc.ann.ID, job.id, err))
		rlog.Debug("skip region", zap.Error(err))
		return
	}

	row := Row{
		ImageFilename: job.src.Filename,
		TaskID:        sc.task.ID.String(),
		AnnotationID:  sc.ann.ID.String(),
		RegionID:      job.id,
		Label:         job.label,
		Shape:         job.shape.kind(),
		Geometry:      mask.Analyze(m),
		PolygonPoints: pixelPoints(points),
	}

	gray, overridden := 0.0, false
	if !job.anonymous {
		gray, overridden = sc.overrides(job.id)
	}
	if overridden {
		row.Intensities = imaging.Intensities{Gray: &gray}
		out.stats.OverridesUsed++
	} else {
		row.Intensities = e.intensities(ctx, sc.cache, job.src, m, out, sc.unavailable, rlog)
	}

	out.rows = append(out.rows, row)
	out.stats.Rows++
	if !job.anonymous {
		sc.processed[job.id] = true
	}
}

// intensities computes pixel statistics for a mask, or returns absent values
// when the image cannot be opened.
func (e *Exporter) intensities(ctx context.Context, cache *imaging.ImageCache, src source.Source, m *mask.Mask, out *annotationOutput, unavailable map[string]bool, logger *zap.Logger) imaging.Intensities {
	img, err := e.load(ctx, cache, src)
	if err != nil {
		out.stats.ImagesUnavailable++
		if !unavailable[src.URL] {
			unavailable[src.URL] = true
			out.warn(err)
		}
		logger.Debug("intensity unavailable", zap.String("filename", src.Filename), zap.Error(err))
		return imaging.Intensities{}
	}

	in, err := imaging.MeanIntensities(img, m)
	if err != nil {
		out.warn(fmt.Errorf("%s: %w", src.Filename, err))
		logger.Debug("intensity failed", zap.Error(err))
		return imaging.Intensities{}
	}
	return in
}

func (e *Exporter) load(ctx context.Context, cache *imaging.ImageCache, src source.Source) (image.Image, error) {
	return cache.Load(src.URL, func() (image.Image, error) {
		return e.images.Open(ctx, src, e.opts.AllowRemoteFetch)
	})
}

// imageRef picks the image reference a result points at: the data key mapped
// from to_name, else the default field, else the first data key. A key
// missing from the data falls back to the first value.
func (e *Exporter) imageRef(data task.Data, toName string) (string, bool) {
	key, ok := e.opts.ImageFields[toName]
	if !ok || key == "" {
		key = e.opts.DefaultImageField
	}
	if key == "" {
		key, _, _ = data.First()
	}

	v, ok := data.Get(key)
	if !ok {
		_, v, _ = data.First()
	}
	if !task.Truthy(v) {
		return "", false
	}
	return task.String(v), true
}
