package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/driftline/market-sandbox/internal/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the live candle stream",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	store := client.NewStore()
	ctrl, err := client.NewController(store, client.Options{
		BaseURL:      cfg.URL,
		HistoryCount: cfg.HistoryCount,
		VerifySecret: cfg.Secret,
		Logger:       log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := store.Subscribe()
	go ctrl.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-updates:
			printSnapshot(store.Snapshot())
		}
	}
}

func printSnapshot(snap client.Snapshot) {
	last := "-"
	if n := len(snap.Candles); n > 0 {
		last = fmt.Sprintf("%.2f", snap.Candles[n-1].Price)
	}
	fmt.Printf("\r%-12s candles=%-4d last=%-10s latency=%dms cursor=%s  ",
		snap.Status, len(snap.Candles), last, snap.LatencyMs, snap.LastEventID)
}
