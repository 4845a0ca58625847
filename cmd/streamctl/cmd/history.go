package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/driftline/market-sandbox/internal/client"
)

var flagCount int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Fetch a window of signed historical candles",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagCount, "count", 0, "number of candles (server clamps to 10..1200)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	count := cfg.HistoryCount
	if flagCount > 0 {
		count = flagCount
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	candles, err := client.NewHistoryClient(cfg.URL, nil).Fetch(ctx, count)
	if err != nil {
		return err
	}

	fmt.Printf("%-24s %10s %10s %10s %10s %10s\n", "time", "open", "high", "low", "close", "volume")
	for _, c := range candles {
		ts := time.UnixMilli(c.Timestamp).Format(time.RFC3339)
		fmt.Printf("%-24s %10.2f %10.2f %10.2f %10.2f %10.2f\n",
			ts, c.Open, c.High, c.Low, c.Price, c.Volume)
	}
	fmt.Printf("%d candles\n", len(candles))
	return nil
}
