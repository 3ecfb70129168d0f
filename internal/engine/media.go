package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

// whisperSampleRate is the PCM rate every whisper model expects.
const whisperSampleRate = 16000

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// MediaError is a decoding failure with optional command context.
type MediaError struct {
	Message    string
	CommandLog CommandLog
	Err        error
}

// Error formats media failures for logs and the status line.
func (e *MediaError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return e.Message
	}
	msg := fmt.Sprintf("%s (cmd=%s exit=%d)", e.Message, e.CommandLog.Command, e.CommandLog.ExitCode)
	if tail := lastLine(e.CommandLog.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *MediaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Preprocessor converts arbitrary media into 16 kHz mono float32 samples.
type Preprocessor struct {
	ffmpegPath string
	runner     commandRunner
	mkdirTemp  func(dir, pattern string) (string, error)
	removeAll  func(path string) error
	stat       func(name string) (os.FileInfo, error)
	readFile   func(name string) ([]byte, error)
}

// NewPreprocessor constructs the production preprocessor with OS dependencies.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		ffmpegPath: "ffmpeg",
		runner:     &execRunner{},
		mkdirTemp:  os.MkdirTemp,
		removeAll:  os.RemoveAll,
		stat:       os.Stat,
		readFile:   os.ReadFile,
	}
}

// LoadSamples runs ffmpeg into a temporary WAV and decodes it.
func (p *Preprocessor) LoadSamples(ctx context.Context, inputPath string) ([]float32, error) {
	if strings.TrimSpace(inputPath) == "" {
		return nil, &MediaError{Message: "input media path is required"}
	}
	if _, err := p.stat(inputPath); err != nil {
		return nil, &MediaError{Message: fmt.Sprintf("cannot access input media: %s", inputPath), Err: err}
	}

	tempDir, err := p.mkdirTemp("", "live-transcriber-*")
	if err != nil {
		return nil, &MediaError{Message: "failed to create temporary workspace", Err: err}
	}
	defer func() { _ = p.removeAll(tempDir) }()

	outPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	args := buildFFmpegArgs(inputPath, outPath)
	res, runErr := p.runner.Run(ctx, p.ffmpegPath, args...)
	log := CommandLog{
		Command:  p.ffmpegPath,
		Args:     args,
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
	}
	if runErr != nil {
		return nil, &MediaError{Message: "ffmpeg audio conversion failed", CommandLog: log, Err: runErr}
	}

	data, err := p.readFile(outPath)
	if err != nil {
		return nil, &MediaError{Message: "ffmpeg completed but output file is missing", CommandLog: log, Err: err}
	}

	samples, rate, err := DecodeWAV(data)
	if err != nil {
		return nil, &MediaError{Message: "decode preprocessed audio", Err: err}
	}
	if rate != whisperSampleRate {
		samples = ResampleLinear(samples, rate, whisperSampleRate)
	}
	return samples, nil
}

// DecodeWAV decodes a WAV blob into float32 PCM in [-1, 1] and its rate.
func DecodeWAV(b []byte) ([]float32, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, 0, err
	}
	if buf == nil {
		return nil, 0, errors.New("empty wav buffer")
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(int(1) << (bitDepth - 1))
	channels := 1
	if buf.Format != nil && buf.Format.NumChannels > 1 {
		channels = buf.Format.NumChannels
	}

	// Interleaved channels are averaged down to mono.
	out := make([]float32, len(buf.Data)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c])
		}
		out[i] = sum / float32(channels) / scale
	}

	rate := int(dec.SampleRate)
	if rate == 0 && buf.Format != nil {
		rate = buf.Format.SampleRate
	}
	if rate == 0 {
		rate = whisperSampleRate
	}
	return out, rate, nil
}

// ResampleLinear resamples PCM32F from inRate to outRate using linear interpolation.
func ResampleLinear(samples []float32, inRate, outRate int) []float32 {
	if inRate <= 0 || outRate <= 0 || inRate == outRate || len(samples) == 0 {
		return append([]float32(nil), samples...)
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(float64(len(samples)) * ratio)
	if outLen <= 1 {
		outLen = 1
	}
	out := make([]float32, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(srcPos)
		if i0 >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(srcPos - float64(i0))
		out[i] = samples[i0] + (samples[i0+1]-samples[i0])*frac
	}
	return out
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// NewPreprocessorForTests constructs a preprocessor with injectable dependencies.
func NewPreprocessorForTests(ffmpegPath string, runner commandRunner, mkdirTemp func(dir, pattern string) (string, error), removeAll func(path string) error) *Preprocessor {
	return &Preprocessor{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		mkdirTemp:  mkdirTemp,
		removeAll:  removeAll,
		stat:       os.Stat,
		readFile:   os.ReadFile,
	}
}
