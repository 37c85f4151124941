package main

import (
	"ProjectIVR/internal/extraction"
	"ProjectIVR/pkg/audio"
	"ProjectIVR/pkg/openai"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	transcribeLanguage string
	transcribeExtract  bool
)

func init() {
	transcribeCmd.Flags().StringVar(&transcribeLanguage, "language", "en", "spoken language of the recording")
	transcribeCmd.Flags().BoolVar(&transcribeExtract, "extract", false, "also run consent extraction on the text")
	rootCmd.AddCommand(transcribeCmd)
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe a saved call recording with Whisper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}

		t := audio.NewTranscriptionService(apiKey, transcribeLanguage, "", "")
		text, err := t.TranscribeFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("transcribe %s: %w", args[0], err)
		}
		fmt.Println(text)

		if !transcribeExtract {
			return nil
		}

		result := extraction.New(openai.NewChatGPT(), newLogger()).Extract(cmd.Context(), text)
		out, err := jsoniter.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
