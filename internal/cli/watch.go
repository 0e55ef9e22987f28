package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"checkin-queue/internal/config"
	"checkin-queue/internal/models"
	"checkin-queue/internal/realtime"
	"checkin-queue/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	var (
		url      string
		attempts int
		delay    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live queue from a terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = "ws://localhost:" + config.GetEnv("PORT", config.DefaultPort) + "/ws"
			}

			queueURL, err := watcher.QueueURL(url)
			if err != nil {
				return err
			}

			board := &board{
				out: cmd.OutOrStdout(),
				fetch: func() ([]models.QueueEntry, error) {
					return watcher.FetchQueue(queueURL)
				},
			}
			client := &watcher.Client{
				URL:         url,
				MaxAttempts: attempts,
				Delay:       delay,
				OnEvent:     board.apply,
				OnStatus:    board.status,
			}
			err = client.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "websocket URL of the queue server")
	cmd.Flags().IntVar(&attempts, "attempts", watcher.DefaultMaxAttempts, "reconnect attempts before giving up")
	cmd.Flags().DurationVar(&delay, "delay", watcher.DefaultDelay, "delay between reconnect attempts")
	return cmd
}

// board keeps the last known queue and redraws it on every event.
// Snapshots replace the rows; a new-checkin only announces the patron and
// reloads the queue through fetch.
type board struct {
	mu      sync.Mutex
	out     io.Writer
	fetch   func() ([]models.QueueEntry, error)
	entries []models.QueueEntry
}

func (b *board) apply(env realtime.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch env.Type {
	case realtime.InitialQueue, realtime.QueueUpdate:
		entries, err := env.Snapshot()
		if err != nil {
			log.Printf("[watch] bad %s payload: %v", env.Type, err)
			return
		}
		b.entries = entries
	case realtime.NewCheckIn:
		entry, err := env.Entry()
		if err != nil {
			log.Printf("[watch] bad %s payload: %v", env.Type, err)
			return
		}
		fmt.Fprintf(b.out, "\aNew check-in: %s\n", entry.PatronName)
		b.reload(entry)
	default:
		return
	}
	render(b.out, b.entries)
}

// reload refreshes the rows after a new-checkin. Without a fetch, or when
// it fails, the entry is added unless a snapshot already holds it.
func (b *board) reload(entry models.QueueEntry) {
	if b.fetch != nil {
		entries, err := b.fetch()
		if err == nil {
			b.entries = entries
			return
		}
		log.Printf("[watch] reload queue: %v", err)
	}
	for _, e := range b.entries {
		if e.ID == entry.ID {
			return
		}
	}
	b.entries = append(b.entries, entry)
}

func (b *board) status(s watcher.Status, attempt, max int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch s {
	case watcher.Reconnecting:
		fmt.Fprintf(b.out, "Reconnecting (%d/%d)...\n", attempt, max)
	case watcher.Failed:
		fmt.Fprintln(b.out, "Connection failed")
	default:
		fmt.Fprintln(b.out, "Connected")
	}
}

func render(w io.Writer, entries []models.QueueEntry) {
	fmt.Fprintf(w, "\n%d waiting\n", len(entries))
	if len(entries) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tNAME\tACCOUNT\tCHECKED IN\tWAIT\tPAST DUE")
	for i, e := range entries {
		pastDue := ""
		if e.PastDue {
			pastDue = "yes"
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			e.ID,
			e.PatronName,
			e.AccountNumber,
			time.UnixMilli(e.CheckInTime).Format("15:04:05"),
			time.Duration(e.WaitTime)*time.Second,
			pastDue,
		)
	}
	tw.Flush()
}
