package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/segmentio/action-destinations-sub030/internal/dispatch"
	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/fql/fqlcache"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch [events.jsonl|-]",
	Short: "Run stored subscriptions against newline-delimited JSON events",
	Long: `dispatch reads one event per line and runs the destination's stored
subscriptions against each. Matched actions echo their mapped payload as a
JSON line; skipped subscriptions are reported at debug level.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDispatch,
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().String("destination", "", "destination name (defaults to dispatch.destination)")
}

// echoAction writes every payload it receives as one JSON line.
type echoAction struct {
	mu     *sync.Mutex
	enc    *json.Encoder
	action string
}

func (a echoAction) Perform(_ context.Context, payload map[string]any) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return nil, a.enc.Encode(map[string]any{"action": a.action, "payload": payload})
}

func runDispatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	conn, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	destination := destinationFlag(cmd, cfg)
	subs, err := store.ListByDestination(ctx, destination)
	if err != nil {
		return err
	}

	var mu sync.Mutex
	enc := json.NewEncoder(cmd.OutOrStdout())
	actions := make(map[string]dispatch.Action)
	for _, s := range subs {
		actions[s.PartnerAction] = echoAction{mu: &mu, enc: enc, action: s.PartnerAction}
	}

	cache := fqlcache.New(cfg.Cache.Size, nil)
	dispatcher := dispatch.New(
		dispatch.Destination{Name: destination, Actions: actions},
		dispatch.WithEngine(fql.NewEngine(fql.WithParser(cache))),
		dispatch.WithLogger(logger),
		dispatch.WithConcurrency(cfg.Dispatch.Concurrency),
	)

	var in io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var event types.Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			return fmt.Errorf("line %d: decode event: %w", line, err)
		}
		if _, err := dispatcher.OnEvent(ctx, event, subs); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	stats := cache.Stats()
	logger.Info("dispatch finished",
		zap.Int("events", line),
		zap.Int("subscriptions", len(subs)),
		zap.Uint64("cache_hits", stats.Hits),
		zap.Uint64("cache_misses", stats.Misses),
	)
	return nil
}
