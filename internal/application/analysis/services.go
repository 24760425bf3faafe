package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanwahyu/callcenter-analytics/internal/application"
	"github.com/bryanwahyu/callcenter-analytics/internal/domain/ai"
	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
	"github.com/bryanwahyu/callcenter-analytics/internal/domain/audio"
)

// Recorder observes finished runs; middleware.Metrics implements it.
type Recorder interface {
	AnalysisFinished(outcome string, elapsed time.Duration)
}

// Service runs the analysis pipeline. Index, Mirror and Metrics are optional.
// Service holds no mutable state and is safe for concurrent use.
type Service struct {
	Client   ai.Client
	Results  domain.ResultStore
	Index    domain.Repository
	Mirror   domain.Mirror
	Metrics  Recorder
	Settings domain.Settings
	Clock    application.Clock
	Log      *slog.Logger
}

// Analyze runs one non-retried model call against the recording at path.
// Every failure is returned as *domain.Error; nothing panics out.
func (s *Service) Analyze(ctx context.Context, path string) (result *domain.Result, err error) {
	start := s.now()
	name := audio.BaseName(path)
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, domain.Errorf(domain.KindExternalService, "analysis panicked: %v", r)
		}
		s.finish(ctx, name, path, start, err)
	}()

	raw, err := s.generate(ctx, path)
	if err != nil {
		return nil, err
	}

	parsed, perr := ParseOutput(raw)
	if perr != nil {
		return nil, s.keepRaw(ctx, name, raw, perr)
	}

	file, err := s.Results.SaveJSON(ctx, name, parsed)
	if err != nil {
		if isEncodeError(err) {
			return nil, s.keepRaw(ctx, name, raw, err)
		}
		return nil, domain.Wrap(domain.KindExternalService, fmt.Errorf("save analysis: %w", err))
	}
	s.mirror(ctx, file)
	return parsed, nil
}

// keepRaw stores the unparsed model text as <name>.txt and reports a parse error
// carrying it.
func (s *Service) keepRaw(ctx context.Context, name, raw string, cause error) error {
	s.logger().Warn("could not parse model output as YAML/JSON, saving raw text",
		"name", name, "error", cause)
	file, err := s.Results.SaveRaw(ctx, name, raw)
	if err != nil {
		return domain.Wrap(domain.KindExternalService, fmt.Errorf("save raw output: %w", err))
	}
	s.mirror(ctx, file)
	return &domain.Error{
		Kind:      domain.KindParse,
		Message:   "failed to parse model output",
		RawOutput: raw,
		Err:       cause,
	}
}

func isEncodeError(err error) bool {
	var (
		unsupported *json.UnsupportedValueError
		typ         *json.UnsupportedTypeError
		marshaler   *json.MarshalerError
	)
	return errors.As(err, &unsupported) || errors.As(err, &typ) || errors.As(err, &marshaler)
}

// generate covers credential check, MIME lookup, the model call and aggregation.
func (s *Service) generate(ctx context.Context, path string) (string, error) {
	if strings.TrimSpace(s.Settings.APIKey) == "" {
		env := s.Settings.APIKeyEnv
		if env == "" {
			env = "API key"
		}
		return "", domain.Errorf(domain.KindConfiguration, "%s not found in environment variables", env)
	}

	format := audio.FormatOf(path)
	mimeType := format.MIMEType()
	if mimeType == "" {
		return "", domain.Errorf(domain.KindUnsupportedFormat, "unsupported audio file format: %s", format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.Errorf(domain.KindNotFound, "audio file '%s' not found", filepath.Base(path))
		}
		return "", domain.Wrap(domain.KindExternalService, err)
	}

	req := ai.Request{
		Model:             s.Settings.ModelName,
		SystemInstruction: s.Settings.SystemInstruction,
		Prompt:            s.Settings.Prompt,
		Audio:             data,
		MIMEType:          mimeType,
	}

	var (
		b      strings.Builder
		finish string
	)
	for chunk, err := range s.Client.Stream(ctx, req) {
		if err != nil {
			if errors.Is(err, ai.ErrMissingCredential) {
				return "", domain.Errorf(domain.KindConfiguration, "%s", err.Error())
			}
			return "", domain.Wrap(domain.KindExternalService, err)
		}
		if chunk.Text != "" {
			b.WriteString(chunk.Text)
		}
		if chunk.FinishReason != "" {
			finish = chunk.FinishReason
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		if finish != "" && finish != ai.FinishReasonStop {
			return "", domain.Errorf(domain.KindEmptyResponse, "API call finished prematurely. Reason: %s", finish)
		}
		return "", domain.Errorf(domain.KindEmptyResponse, "received an empty response from the API")
	}
	return text, nil
}

// Export returns the stored JSON document for an analysis id ("call1" or "call1.json").
func (s *Service) Export(ctx context.Context, id string) ([]byte, error) {
	name := strings.TrimSuffix(id, ".json")
	if name == "" {
		return nil, domain.Errorf(domain.KindBadRequest, "analysis_id is required")
	}
	data, err := s.Results.LoadJSON(ctx, name)
	if err != nil {
		return nil, domain.Wrap(domain.KindExternalService, err)
	}
	return data, nil
}

// History lists the latest run per name, from the index when configured.
func (s *Service) History(ctx context.Context, limit int) ([]*domain.Record, error) {
	if s.Index != nil {
		return s.Index.List(ctx, limit)
	}
	records, err := s.Results.List(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Service) finish(ctx context.Context, name, path string, start time.Time, err error) {
	outcome := outcomeOf(err)
	if s.Metrics != nil {
		s.Metrics.AnalysisFinished(outcome, s.now().Sub(start))
	}
	if err != nil {
		s.logger().Error("analysis failed", "name", name, "kind", domain.KindOf(err), "error", err)
	} else {
		s.logger().Info("analysis saved", "name", name, "elapsed", s.now().Sub(start))
	}
	if s.Index == nil {
		return
	}
	rec := &domain.Record{
		Name:      name,
		AudioFile: filepath.Base(path),
		UpdatedAt: s.now().UTC(),
	}
	switch {
	case err == nil:
		rec.Status = domain.StatusParsed
		rec.ResultFile = name + ".json"
	case domain.KindOf(err) == domain.KindParse:
		rec.Status = domain.StatusRaw
		rec.ResultFile = name + ".txt"
		rec.Error = err.Error()
	default:
		rec.Status = domain.StatusFailed
		rec.Error = err.Error()
	}
	// the request context may already be done; the index write should still land
	if ierr := s.Index.Save(context.WithoutCancel(ctx), rec); ierr != nil {
		s.logger().Warn("index update failed", "name", name, "error", ierr)
	}
}

func (s *Service) mirror(ctx context.Context, file string) {
	if s.Mirror == nil {
		return
	}
	key := filepath.Base(file)
	if _, err := s.Mirror.Upload(context.WithoutCancel(ctx), file, key); err != nil {
		s.logger().Warn("result mirror upload failed", "file", key, "error", err)
	}
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return string(domain.KindOf(err))
}
