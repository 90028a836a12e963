package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a file is not a decodable PCM WAV file
var ErrInvalidWAV = errors.New("invalid wav file")

// WAVSource replays a WAV file as a sequence of frames.
//
// The whole file is decoded on Start and downmixed to mono; Read then hands
// out consecutive frames of frameSize samples, advancing by hop samples. A
// trailing partial frame is dropped.
type WAVSource struct {
	path      string
	frameSize int
	hop       int

	mu         sync.Mutex
	samples    []float32
	sampleRate int
	pos        int
	started    bool
}

// NewWAVSource creates a source for the file at path. hop <= 0 means
// non-overlapping frames.
func NewWAVSource(path string, frameSize, hop int) *WAVSource {
	if hop <= 0 {
		hop = frameSize
	}
	return &WAVSource{path: path, frameSize: frameSize, hop: hop}
}

// Start decodes the file
func (s *WAVSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyCapturing
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open %q: %w", s.path, err)
	}
	defer f.Close()

	samples, sampleRate, err := decodeWAV(f)
	if err != nil {
		return fmt.Errorf("decode %q: %w", s.path, err)
	}

	s.samples = samples
	s.sampleRate = sampleRate
	s.pos = 0
	s.started = true
	return nil
}

// Stop releases the decoded samples
func (s *WAVSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotCapturing
	}
	s.started = false
	s.samples = nil
	return nil
}

// SampleRate returns the decoded file's sample rate, or 0 before Start
func (s *WAVSource) SampleRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate
}

// Read returns the next frame, or io.EOF once the file is exhausted
func (s *WAVSource) Read(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return Frame{}, ErrNotCapturing
	}
	if s.pos+s.frameSize > len(s.samples) {
		return Frame{}, io.EOF
	}

	frame := Frame{
		Samples:    make([]float32, s.frameSize),
		SampleRate: s.sampleRate,
		Offset:     time.Duration(float64(s.pos) / float64(s.sampleRate) * float64(time.Second)),
	}
	copy(frame.Samples, s.samples[s.pos:s.pos+s.frameSize])
	s.pos += s.hop
	return frame, nil
}

// decodeWAV reads a PCM WAV stream into normalised mono samples
func decodeWAV(r io.ReadSeeker) ([]float32, int, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return nil, 0, ErrInvalidWAV
	}

	buffer, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buffer.Format == nil || buffer.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("%w: missing format", ErrInvalidWAV)
	}

	return normalise(buffer), buffer.Format.SampleRate, nil
}

// normalise converts integer PCM to [-1, 1] and averages channels
func normalise(buffer *goaudio.IntBuffer) []float32 {
	channels := buffer.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	bitDepth := buffer.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))
	offset := 0.0
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		offset = scale
	}

	mono := make([]float32, len(buffer.Data)/channels)
	for i := range mono {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			sum += (float64(buffer.Data[i*channels+ch]) - offset) / scale
		}
		mono[i] = float32(sum / float64(channels))
	}
	return mono
}
