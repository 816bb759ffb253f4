// Package pipeline runs one background-removal interaction: decode the
// subject, remove its background, and optionally composite it over a new
// background. The subject and background stages fail independently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/backdrop/internal/compose"
	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/database"
	"github.com/kozaktomas/backdrop/internal/fingerprint"
	"github.com/kozaktomas/backdrop/internal/removal"
)

// User-facing messages.
const (
	SubjectErrorPrefix    = "Error processing subject image: "
	BackgroundErrorPrefix = "Error processing background image: "
	SuccessMessage        = "Background successfully replaced!"
)

var (
	ErrNoSubject        = errors.New("no subject image supplied")
	ErrInvalidThreshold = fmt.Errorf("threshold must be between %d and %d", constants.MinThreshold, constants.MaxThreshold)
)

// Input is everything collected from one interaction.
type Input struct {
	Subject           []byte
	SubjectName       string
	ReplaceBackground bool
	Background        []byte // ignored unless ReplaceBackground is set
	Threshold         int
}

// Result describes what a run produced. A failed stage is reported in
// SubjectError or BackgroundError; it is never returned as an error.
type Result struct {
	RunID           string          `json:"run_id"`
	Backend         string          `json:"backend"`
	Threshold       int             `json:"threshold"`
	Options         removal.Options `json:"-"`
	SubjectHash     string          `json:"subject_hash,omitempty"`
	Width           int             `json:"width"`
	Height          int             `json:"height"`
	ProcessedPath   string          `json:"processed_path,omitempty"`
	FinalPath       string          `json:"final_path,omitempty"`
	OriginalPath    string          `json:"original_path,omitempty"`
	SubjectError    string          `json:"subject_error,omitempty"`
	BackgroundError string          `json:"background_error,omitempty"`
	Message         string          `json:"message,omitempty"`
	Duration        time.Duration   `json:"-"`

	Processed *image.NRGBA `json:"-"`
	Final     *image.NRGBA `json:"-"`
}

// Composited reports whether the background stage ran and succeeded.
func (r *Result) Composited() bool {
	return r.Final != nil
}

type Pipeline struct {
	mu       sync.Mutex // one run at a time so processed/final pairs never interleave
	remover  removal.Remover
	storage  *Storage
	filter   string
	recorder database.RunRecorder
}

type Option func(*Pipeline)

// WithResizeFilter sets the interpolation used to fit the background.
func WithResizeFilter(filter string) Option {
	return func(p *Pipeline) { p.filter = filter }
}

// WithRecorder stores a history entry for every run.
func WithRecorder(r database.RunRecorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func New(remover removal.Remover, storage *Storage, opts ...Option) *Pipeline {
	p := &Pipeline{
		remover: remover,
		storage: storage,
		filter:  "catmullrom",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Storage() *Storage {
	return p.storage
}

func (p *Pipeline) BackendName() string {
	return p.remover.Name()
}

// ValidateThreshold checks that t is in [0, 255].
func ValidateThreshold(t int) error {
	if t < constants.MinThreshold || t > constants.MaxThreshold {
		return fmt.Errorf("%w, got %d", ErrInvalidThreshold, t)
	}
	return nil
}

// Run executes the whole pipeline. Only invalid input or a context cancelled
// before the run started is returned as an error; stage failures are
// reported on the result.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if len(in.Subject) == 0 {
		return nil, ErrNoSubject
	}
	if err := ValidateThreshold(in.Threshold); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// a superseded request may have been cancelled while it waited
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &Result{
		RunID:     uuid.NewString(),
		Backend:   p.remover.Name(),
		Threshold: in.Threshold,
		Options:   removal.OptionsFromThreshold(in.Threshold),
	}
	logger := log.WithFields(log.Fields{
		"run_id":    res.RunID,
		"backend":   res.Backend,
		"threshold": in.Threshold,
	})

	if path, err := p.storage.KeepOriginal(in.SubjectName, in.Subject); err != nil {
		logger.WithError(err).Warn("Could not keep original upload")
	} else {
		res.OriginalPath = path
	}

	if err := p.removeBackground(ctx, in.Subject, res); err != nil {
		res.SubjectError = SubjectErrorPrefix + err.Error()
		logger.WithError(err).Warn("Subject stage failed")
		p.finish(ctx, logger, res, in, start)
		return res, nil
	}

	if in.ReplaceBackground && len(in.Background) > 0 {
		if err := p.replaceBackground(in.Background, res); err != nil {
			res.BackgroundError = BackgroundErrorPrefix + err.Error()
			logger.WithError(err).Warn("Background stage failed")
		} else {
			res.Message = SuccessMessage
		}
	}

	p.finish(ctx, logger, res, in, start)
	return res, nil
}

func (p *Pipeline) removeBackground(ctx context.Context, subject []byte, res *Result) error {
	src, err := compose.DecodeNRGBA(subject)
	if err != nil {
		return err
	}
	res.Width, res.Height = src.Bounds().Dx(), src.Bounds().Dy()
	res.SubjectHash = fingerprint.Hex(fingerprint.DHash(src))

	out, err := p.remover.Remove(ctx, subject, res.Options)
	if err != nil {
		return err
	}
	cutout, err := compose.DecodeNRGBA(out)
	if err != nil {
		return fmt.Errorf("invalid removal output: %w", err)
	}
	if cutout.Bounds().Size() != src.Bounds().Size() {
		if cutout, err = compose.FitTo(cutout, src, p.filter); err != nil {
			return err
		}
	}

	data, err := compose.EncodePNG(cutout)
	if err != nil {
		return err
	}
	if err := p.storage.WriteProcessed(data); err != nil {
		return err
	}

	res.Processed = cutout
	res.ProcessedPath = p.storage.ProcessedPath()
	return nil
}

func (p *Pipeline) replaceBackground(background []byte, res *Result) error {
	bg, err := compose.DecodeNRGBA(background)
	if err != nil {
		return err
	}
	// aspect ratio is not preserved
	fitted, err := compose.FitTo(bg, res.Processed, p.filter)
	if err != nil {
		return err
	}
	final, err := compose.AlphaComposite(fitted, res.Processed)
	if err != nil {
		return err
	}

	data, err := compose.EncodePNG(final)
	if err != nil {
		return err
	}
	if err := p.storage.WriteFinal(data); err != nil {
		return err
	}

	res.Final = final
	res.FinalPath = p.storage.FinalPath()
	return nil
}

func (p *Pipeline) finish(ctx context.Context, logger *log.Entry, res *Result, in Input, start time.Time) {
	res.Duration = time.Since(start)
	logger.WithFields(log.Fields{
		"duration":   res.Duration.String(),
		"composited": res.Composited(),
	}).Info("Run finished")

	if p.recorder == nil {
		return
	}
	run := &database.Run{
		ID:                  res.RunID,
		CreatedAt:           start,
		Backend:             res.Backend,
		Threshold:           res.Threshold,
		ForegroundThreshold: res.Options.ForegroundThreshold,
		BackgroundThreshold: res.Options.BackgroundThreshold,
		ErodeSize:           res.Options.ErodeSize,
		SubjectWidth:        res.Width,
		SubjectHeight:       res.Height,
		SubjectHash:         res.SubjectHash,
		BackgroundSupplied:  in.ReplaceBackground && len(in.Background) > 0,
		SubjectError:        res.SubjectError,
		BackgroundError:     res.BackgroundError,
		DurationMs:          res.Duration.Milliseconds(),
	}
	if err := p.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		logger.WithError(err).Warn("Could not record run")
	}
}
