package audio

import (
	"context"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioCapturer captures microphone input using PortAudio.
//
// The stream callback copies each buffer into a small queue. When the
// consumer falls behind the oldest queued frame is dropped, so latency stays
// bounded by the queue depth.
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	frameSize     int
	sampleRate    int
	channels      int
	frames        chan Frame
	bufferMutex   sync.Mutex
	amplification float32 // Audio signal amplification factor
	dropped       uint64
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio.
// queueDepth is the number of frames buffered between the callback and Read.
func NewPortAudioCapturer(frameSize, sampleRate, channels, queueDepth int) *PortAudioCapturer {
	if channels < 1 {
		channels = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &PortAudioCapturer{
		frameSize:     frameSize,
		sampleRate:    sampleRate,
		channels:      channels,
		frames:        make(chan Frame, queueDepth),
		amplification: 1.0,
	}
}

// Start initialises PortAudio and opens the default input stream
func (c *PortAudioCapturer) Start() error {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	if err := portaudio.Initialize(); err != nil {
		return err
	}

	stream, err := portaudio.OpenDefaultStream(
		c.channels, // input channels
		0,          // output channels (we don't need output)
		float64(c.sampleRate),
		c.frameSize, // frames per buffer
		c.processAudio,
	)
	if err != nil {
		portaudio.Terminate()
		return err
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}

	c.stream = stream
	c.isCapturing = true
	return nil
}

// Stop closes the stream and terminates PortAudio
func (c *PortAudioCapturer) Stop() error {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	if !c.isCapturing {
		return ErrNotCapturing
	}
	c.isCapturing = false

	// Release everything even if an earlier step fails.
	stopErr := c.stream.Stop()
	closeErr := c.stream.Close()
	termErr := portaudio.Terminate()
	c.stream = nil

	switch {
	case stopErr != nil:
		return stopErr
	case closeErr != nil:
		return closeErr
	default:
		return termErr
	}
}

// processAudio is the PortAudio stream callback
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	c.bufferMutex.Lock()
	amplification := c.amplification
	c.bufferMutex.Unlock()

	frame := Frame{
		Samples:    downmix(in, c.channels, amplification),
		SampleRate: c.sampleRate,
	}

	select {
	case c.frames <- frame:
		return
	default:
	}

	// Queue full: drop the oldest frame and retry once.
	select {
	case <-c.frames:
		c.bufferMutex.Lock()
		c.dropped++
		c.bufferMutex.Unlock()
	default:
	}
	select {
	case c.frames <- frame:
	default:
	}
}

// Read waits for the next captured frame
func (c *PortAudioCapturer) Read(ctx context.Context) (Frame, error) {
	if !c.IsCapturing() {
		return Frame{}, ErrNotCapturing
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case frame := <-c.frames:
		return frame, nil
	}
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()
	return c.isCapturing
}

// Dropped reports how many frames were discarded because Read fell behind
func (c *PortAudioCapturer) Dropped() uint64 {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()
	return c.dropped
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}

	c.amplification = factor
}

// downmix averages interleaved channels into a new mono slice and applies gain
func downmix(in []float32, channels int, gain float32) []float32 {
	if channels <= 1 {
		out := make([]float32, len(in))
		for i, sample := range in {
			out[i] = sample * gain
		}
		return out
	}

	out := make([]float32, len(in)/channels)
	for i := range out {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		out[i] = (sum / float32(channels)) * gain
	}
	return out
}
