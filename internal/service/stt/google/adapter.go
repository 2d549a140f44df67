// Package google provides a Google Cloud Speech-to-Text provider.
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"meeting-summary-service/internal/failure"
	"meeting-summary-service/internal/observability/logging"
)

const op = "transcribe"

// Config holds Google STT configuration.
type Config struct {
	LanguageCode    string // BCP-47 language code (e.g., "ko-KR")
	SampleRateHz    int32  // Sample rate the audio is transcoded to
	AudioEncoding   string // FLAC, LINEAR16, OGG_OPUS, etc.
	CredentialsFile string // Service account JSON; empty uses ADC
}

// DefaultConfig returns sensible defaults for meeting recordings.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "ko-KR",
		SampleRateHz:  16000,
		AudioEncoding: "FLAC",
	}
}

// Transcoder converts the recorded M4A into a format the API accepts.
type Transcoder interface {
	Transcode(ctx context.Context, audio []byte, format string, sampleRate int) ([]byte, error)
}

// recognizer is the subset of *speech.Client used here.
type recognizer interface {
	LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)
	Close() error
}

type clientRecognizer struct {
	client *speech.Client
}

func (c clientRecognizer) LongRunningRecognize(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	lro, err := c.client.LongRunningRecognize(ctx, req)
	if err != nil {
		return nil, err
	}
	return lro.Wait(ctx)
}

func (c clientRecognizer) Close() error { return c.client.Close() }

// Adapter implements stt.Transcriber using batch (long-running) recognition
// with inline audio content.
type Adapter struct {
	rec        recognizer
	transcoder Transcoder
	config     Config
}

// New creates a new Google STT adapter with default configuration.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, transcoder Transcoder) (*Adapter, error) {
	return NewWithConfig(ctx, DefaultConfig(), transcoder)
}

// NewWithConfig creates a new Google STT adapter with custom configuration.
func NewWithConfig(ctx context.Context, cfg Config, transcoder Transcoder) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &Adapter{rec: clientRecognizer{client: c}, transcoder: transcoder, config: cfg}, nil
}

// Transcribe converts the audio and waits for the recognition result.
func (a *Adapter) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	logger := logging.WithProvider("google")

	content := audio
	if a.transcoder != nil {
		format := strings.ToLower(a.config.AudioEncoding)
		if a.config.AudioEncoding == "LINEAR16" {
			format = "wav"
		}
		converted, err := a.transcoder.Transcode(ctx, audio, format, int(a.config.SampleRateHz))
		if err != nil {
			return "", failure.New(failure.KindExportFailed, op, err)
		}
		content = converted
	}

	logger.Debug().
		Str("file", fileName).
		Str("languageCode", a.config.LanguageCode).
		Int32("sampleRateHz", a.config.SampleRateHz).
		Str("encoding", a.config.AudioEncoding).
		Msg("Starting long-running recognition")

	resp, err := a.rec.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(a.config.AudioEncoding),
			SampleRateHertz:            a.config.SampleRateHz,
			LanguageCode:               a.config.LanguageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	return joinResults(resp), nil
}

// Close releases the underlying gRPC connection.
func (a *Adapter) Close() error {
	return a.rec.Close()
}

func joinResults(resp *speechpb.LongRunningRecognizeResponse) string {
	parts := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		if len(r.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return failure.Network(op, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return failure.Network(op, err)
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return failure.New(failure.KindDecode, op, err)
	case codes.Unauthenticated:
		return failure.BadStatus(op, 401, st.Message())
	case codes.PermissionDenied:
		return failure.BadStatus(op, 403, st.Message())
	case codes.ResourceExhausted:
		return failure.BadStatus(op, 429, st.Message())
	}
	return &failure.Error{
		Kind:   failure.KindNetwork,
		Op:     op,
		Domain: "grpc",
		Code:   st.Code().String(),
		Err:    err,
	}
}

// parseAudioEncoding converts a string encoding name to the protobuf enum.
func parseAudioEncoding(encoding string) speechpb.RecognitionConfig_AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
