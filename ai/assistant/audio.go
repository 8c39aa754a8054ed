package assistant

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"NovaCS/entity"
	"NovaCS/internal/lib/sl"
	"NovaCS/internal/push"
	"github.com/sashabaranov/go-openai"
	"log/slog"
)

// TranscribeVoice downloads a voice recording and runs it through
// whisper. Used as a side-channel after a voice message is saved; the
// transcript lands on the stored message afterwards, not in the send
// response.
func (s *Service) TranscribeVoice(ctx context.Context, audioURL string) (string, error) {
	resp, err := http.Get(audioURL)
	if err != nil {
		return "", fmt.Errorf("failed to download audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download audio, status code: %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "voice_*.ogg")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	if _, err = io.Copy(tmpFile, resp.Body); err != nil {
		return "", fmt.Errorf("failed to copy audio to file: %w", err)
	}

	transcription, err := s.transcribeAudio(ctx, tmpFile.Name())
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return transcription, nil
}

func (s *Service) transcribeAudio(ctx context.Context, filePath string) (string, error) {

	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filePath,
		Format:   openai.AudioResponseFormatText,
	}

	resp, err := s.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// TranscribeAndPublish runs the transcription side-channel for a saved
// voice message: transcribe, amend the stored record, push the update
// to subscribers. Errors are logged, not returned; the message stays
// valid without a transcript.
func (s *Service) TranscribeAndPublish(ctx context.Context, msg entity.Message) {
	if !msg.HasAudio() {
		return
	}

	transcript, err := s.TranscribeVoice(ctx, msg.Attachment.AudioURL)
	if err != nil {
		s.log.Warn("voice transcription failed",
			slog.String("message_id", msg.ID), sl.Err(err))
		return
	}

	updated, err := s.repository.UpdateTranscript(msg.ID, transcript)
	if err != nil {
		s.log.Warn("saving transcript failed",
			slog.String("message_id", msg.ID), sl.Err(err))
		return
	}

	if s.hub != nil {
		s.hub.PublishMessage(push.EventUpdate, updated)
	}
}
