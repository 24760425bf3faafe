package audio

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	analysis "github.com/bryanwahyu/callcenter-analytics/internal/domain/analysis"
	domain "github.com/bryanwahyu/callcenter-analytics/internal/domain/audio"
)

// Uploads counts stored uploads; middleware.Metrics implements it.
type Uploads interface {
	UploadStored()
}

// Service resolves recordings from uploads or identifiers.
type Service struct {
	Library domain.Library
	Metrics Uploads
	Log     *slog.Logger
}

// ResolveCommand carries exactly one of an upload or an identifier.
type ResolveCommand struct {
	Upload     io.Reader
	UploadName string
	AudioID    string
}

// Resolve returns a readable local path for the command.
// Neither or both inputs is a bad request; an unknown identifier is not found.
func (s *Service) Resolve(ctx context.Context, cmd ResolveCommand) (string, error) {
	hasUpload := cmd.Upload != nil
	hasID := cmd.AudioID != ""
	if hasUpload == hasID {
		return "", analysis.Errorf(analysis.KindBadRequest, "you must provide either an 'audio_id' or upload a 'file', but not both")
	}

	if hasUpload {
		name := cmd.UploadName
		if err := domain.ValidateName(name); err != nil {
			return "", analysis.Errorf(analysis.KindBadRequest, "invalid upload file name: %v", err)
		}
		path, err := s.Library.Save(ctx, name, cmd.Upload)
		if err != nil {
			return "", analysis.Wrap(analysis.KindExternalService, err)
		}
		if s.Metrics != nil {
			s.Metrics.UploadStored()
		}
		s.logger().Info("audio upload stored", "file", name)
		return path, nil
	}

	if err := domain.ValidateName(cmd.AudioID); err != nil {
		return "", analysis.Errorf(analysis.KindBadRequest, "invalid audio_id: %v", err)
	}
	path, err := s.Library.Locate(ctx, cmd.AudioID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", analysis.Errorf(analysis.KindNotFound, "audio file with id '%s' not found", cmd.AudioID)
		}
		return "", analysis.Wrap(analysis.KindExternalService, err)
	}
	return path, nil
}

// List returns the supported recordings with their durations.
func (s *Service) List(ctx context.Context) ([]domain.File, error) {
	return s.Library.Files(ctx)
}

func (s *Service) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}
