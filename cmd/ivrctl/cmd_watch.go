package main

import (
	"ProjectIVR/internal/livefeed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var (
	watchURL   string
	watchToken string
)

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "ws://localhost:3000/api/v1/calls/live", "live feed websocket URL")
	watchCmd.Flags().StringVar(&watchToken, "token", "", "operator bearer token")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream live call transcripts and lifecycle events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		header := http.Header{}
		if watchToken != "" {
			header.Set("Authorization", "Bearer "+watchToken)
		}

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, watchURL, header)
		if err != nil {
			if resp != nil {
				return fmt.Errorf("connect %s: %s", watchURL, resp.Status)
			}
			return fmt.Errorf("connect %s: %w", watchURL, err)
		}
		defer conn.Close()

		go func() {
			<-ctx.Done()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", watchURL)
		for {
			var ev livefeed.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					return fmt.Errorf("feed closed: %s", closeErr.Text)
				}
				return fmt.Errorf("read event: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatEvent(ev))
		}
	},
}

func formatEvent(ev livefeed.Event) string {
	at := ev.At.Local().Format("15:04:05")
	switch ev.Type {
	case livefeed.EventTurn:
		return fmt.Sprintf("%s %s [%s] %s", at, ev.CallID, ev.Stage, ev.Text)
	default:
		return fmt.Sprintf("%s %s %s", at, ev.CallID, ev.Type)
	}
}
