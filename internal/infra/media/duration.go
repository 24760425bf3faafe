package media

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/abema/go-mp4"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/audio"
)

// Prober computes recording length from container metadata.
// Failures of any kind yield zero; the value is for display only.
type Prober struct {
	log *slog.Logger
}

func NewProber(log *slog.Logger) *Prober {
	if log == nil {
		log = slog.Default()
	}
	return &Prober{log: log}
}

// Minutes returns the duration rounded to two decimals, or 0.
func (p *Prober) Minutes(path string) (mins float64) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Debug("audio duration probe panicked", "path", path, "panic", r)
			mins = 0
		}
	}()
	secs, err := Seconds(path)
	if err != nil {
		p.log.Debug("audio duration unavailable", "path", path, "error", err)
		return 0
	}
	return math.Round(secs/60*100) / 100
}

// Seconds decodes the header of path according to its extension.
func Seconds(path string) (float64, error) {
	format := audio.FormatOf(path)
	if !format.Supported() {
		return 0, fmt.Errorf("unsupported format %q", format)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch format {
	case audio.FormatMP3:
		d, err := mp3.NewDecoder(f)
		if err != nil {
			return 0, err
		}
		if d.Length() <= 0 || d.SampleRate() <= 0 {
			return 0, errors.New("mp3: unknown length")
		}
		// decoded stream is 16-bit stereo: 4 bytes per frame
		return float64(d.Length()) / 4 / float64(d.SampleRate()), nil
	case audio.FormatWAV:
		d := wav.NewDecoder(f)
		if !d.IsValidFile() {
			return 0, errors.New("wav: invalid file")
		}
		dur, err := d.Duration()
		if err != nil {
			return 0, err
		}
		return dur.Seconds(), nil
	case audio.FormatM4A:
		info, err := mp4.Probe(f)
		if err != nil {
			return 0, err
		}
		if info.Timescale == 0 {
			return 0, errors.New("m4a: zero timescale")
		}
		return float64(info.Duration) / float64(info.Timescale), nil
	case audio.FormatOGG:
		length, fmtInfo, err := oggvorbis.GetLength(f)
		if err != nil {
			return 0, err
		}
		if fmtInfo == nil || fmtInfo.SampleRate <= 0 {
			return 0, errors.New("ogg: unknown sample rate")
		}
		return float64(length) / float64(fmtInfo.SampleRate), nil
	}
	return 0, fmt.Errorf("unsupported format %q", format)
}
