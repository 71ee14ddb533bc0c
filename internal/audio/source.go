package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/youpy/go-wav"
)

const (
	wavFormatPCM       = 1
	wavReadChunk       = 8192
	rawPCMBytesPerSamp = 2
)

// ErrSampleRateMismatch reports a file recorded at a rate other than the one requested.
var ErrSampleRateMismatch = errors.New("sample rate mismatch")

// Load reads a mono buffer from path. Mono and stereo WAV files are decoded
// and downmixed; .pcm and .raw files are read as little-endian signed 16-bit
// samples at sampleRate.
func Load(path string, sampleRate int) (Buffer, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcm", ".raw":
		return loadRawPCM(path, sampleRate)
	default:
		return loadWAV(path, sampleRate)
	}
}

func loadWAV(path string, sampleRate int) (Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return Buffer{}, fmt.Errorf("read wav format: %w", err)
	}
	if format.AudioFormat != wavFormatPCM {
		return Buffer{}, fmt.Errorf("unsupported wav encoding %d (integer PCM required)", format.AudioFormat)
	}
	switch format.BitsPerSample {
	case 16, 24, 32:
	default:
		return Buffer{}, fmt.Errorf("unsupported wav bit depth %d", format.BitsPerSample)
	}
	if int(format.SampleRate) != sampleRate {
		return Buffer{}, fmt.Errorf("%w: file is %d Hz, expected %d Hz", ErrSampleRateMismatch, format.SampleRate, sampleRate)
	}
	channels := int(format.NumChannels)
	if channels < 1 {
		return Buffer{}, fmt.Errorf("wav reports %d channels", channels)
	}
	// The decoder holds at most two channels per frame.
	if channels > 2 {
		return Buffer{}, fmt.Errorf("unsupported wav channel count %d (mono or stereo required)", channels)
	}
	scale := math.Pow(2, float64(format.BitsPerSample)-1)

	var samples []float32
	for {
		chunk, readErr := reader.ReadSamples(wavReadChunk)
		for _, s := range chunk {
			var sum float64
			for ch := 0; ch < channels; ch++ {
				sum += float64(reader.IntValue(s, uint(ch))) / scale
			}
			samples = append(samples, float32(sum/float64(channels)))
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return Buffer{}, fmt.Errorf("read wav samples: %w", readErr)
		}
	}
	return Buffer{Samples: samples, SampleRate: sampleRate}, nil
}

func loadRawPCM(path string, sampleRate int) (Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("read pcm: %w", err)
	}
	count := len(data) / rawPCMBytesPerSamp
	samples := make([]float32, count)
	for i := 0; i < count; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*rawPCMBytesPerSamp:]))
		samples[i] = float32(v) / 32768
	}
	return Buffer{Samples: samples, SampleRate: sampleRate}, nil
}
