package main

import (
	"github.com/spf13/cobra"
)

var transcriptURL string

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Fetch the spoken transcript of a video post",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("transcript"); err != nil {
			return err
		}

		svc := initAcquire(cfg)
		return writeOutput(cmd.OutOrStdout(), transcriptBody(svc.GetTranscript(cmd.Context(), transcriptURL)), "json")
	},
}

type transcriptResponse struct {
	Transcript *string `json:"transcript"`
}

// transcriptBody maps a missing transcript to null.
func transcriptBody(t string) transcriptResponse {
	if t == "" {
		return transcriptResponse{}
	}
	return transcriptResponse{Transcript: &t}
}

func init() {
	transcriptCmd.Flags().StringVar(&transcriptURL, "url", "", "post URL (required)")
	_ = transcriptCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(transcriptCmd)
}
