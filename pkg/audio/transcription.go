package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber turns a caller recording into text.
type Transcriber interface {
	TranscribeFile(ctx context.Context, filePath string) (string, error)
	TranscribeURL(ctx context.Context, recordingURL string) (string, error)
}

type TranscriptionService struct {
	client     *openai.Client
	httpClient *http.Client
	language   string
	username   string
	password   string
}

// NewTranscriptionService builds a Whisper client. username and password are
// sent as basic auth when downloading recordings.
func NewTranscriptionService(apiKey, language, username, password string) *TranscriptionService {
	if language == "" {
		language = "en"
	}
	return &TranscriptionService{
		client:     openai.NewClient(apiKey),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		language:   language,
		username:   username,
		password:   password,
	}
}

func (t *TranscriptionService) TranscribeFile(ctx context.Context, filePath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filePath,
		Language: t.language,
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}

// TranscribeURL downloads the recording as WAV into a temp file first.
func (t *TranscriptionService) TranscribeURL(ctx context.Context, recordingURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL+".wav", nil)
	if err != nil {
		return "", err
	}
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download recording: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download recording: unexpected status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "recording-*.wav")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save recording: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	return t.TranscribeFile(ctx, tmp.Name())
}
