package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/segmentio/action-destinations-sub030/internal/core/config"
	"github.com/segmentio/action-destinations-sub030/internal/core/db"
	"github.com/segmentio/action-destinations-sub030/internal/types"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending subscription store migrations",
	RunE:  runMigrate,
}

var subscriptionsCmd = &cobra.Command{
	Use:     "subscriptions",
	Aliases: []string{"subs"},
	Short:   "Manage stored subscriptions",
}

var subscriptionsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Store a subscription",
	RunE:  runSubscriptionsAdd,
}

var subscriptionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a destination's subscriptions",
	RunE:  runSubscriptionsList,
}

var subscriptionsImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Store every subscription in a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubscriptionsImport,
}

var subscriptionsEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], true) },
}

var subscriptionsDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(cmd, args[0], false) },
}

var subscriptionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a subscription",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubscriptionsDelete,
}

func init() {
	rootCmd.AddCommand(migrateCmd, subscriptionsCmd)
	subscriptionsCmd.AddCommand(
		subscriptionsAddCmd,
		subscriptionsListCmd,
		subscriptionsImportCmd,
		subscriptionsEnableCmd,
		subscriptionsDisableCmd,
		subscriptionsDeleteCmd,
	)

	migrateCmd.Flags().Bool("status", false, "print migration status instead of migrating")

	subscriptionsAddCmd.Flags().String("destination", "", "destination name (defaults to dispatch.destination)")
	subscriptionsAddCmd.Flags().String("name", "", "subscription name")
	subscriptionsAddCmd.Flags().String("action", "", "partner action slug")
	subscriptionsAddCmd.Flags().String("subscribe", "", "FQL subscription text")
	subscriptionsAddCmd.Flags().String("mapping", "", "mapping as a JSON object")
	subscriptionsAddCmd.Flags().Bool("disabled", false, "store the subscription disabled")
	for _, f := range []string{"name", "action", "subscribe"} {
		_ = subscriptionsAddCmd.MarkFlagRequired(f)
	}

	subscriptionsListCmd.Flags().String("destination", "", "destination name (defaults to dispatch.destination)")
}

// openStore connects to the configured store and loads its queries.
func openStore(ctx context.Context, cfg *config.Config) (*sqlx.DB, *db.SubscriptionStore, error) {
	conn, err := db.Open(ctx, cfg.Store.URL)
	if err != nil {
		return nil, nil, err
	}
	queries, err := db.LoadQueries(conn)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, db.NewSubscriptionStore(queries), nil
}

func destinationFlag(cmd *cobra.Command, cfg *config.Config) string {
	if d, _ := cmd.Flags().GetString("destination"); d != "" {
		return d
	}
	return cfg.Dispatch.Destination
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, err := db.Open(ctx, cfg.Store.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	if status, _ := cmd.Flags().GetBool("status"); !status {
		if err := db.MigrateUp(ctx, conn); err != nil {
			return err
		}
	}

	statuses, err := db.MigrateStatus(ctx, conn)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED\tAPPLIED AT")
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%t\t%s\n", s.ID, s.Applied, s.AppliedAt)
	}
	return w.Flush()
}

func runSubscriptionsAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sub := types.Subscription{Destination: destinationFlag(cmd, cfg)}
	sub.Name, _ = cmd.Flags().GetString("name")
	sub.PartnerAction, _ = cmd.Flags().GetString("action")
	sub.Subscribe, _ = cmd.Flags().GetString("subscribe")
	disabled, _ := cmd.Flags().GetBool("disabled")
	sub.Enabled = !disabled
	if raw, _ := cmd.Flags().GetString("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &sub.Mapping); err != nil {
			return fmt.Errorf("decode --mapping: %w", err)
		}
	}

	conn, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	created, err := store.Create(ctx, sub)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), created.ID)
	return nil
}

func runSubscriptionsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	subs, err := store.ListByDestination(ctx, destinationFlag(cmd, cfg))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTION\tENABLED\tCREATED\tSUBSCRIBE")
	for _, s := range subs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n", s.ID, s.Name, s.PartnerAction, s.Enabled, createdAt(s.ID), s.Subscribe)
	}
	return w.Flush()
}

// createdAt renders the time embedded in a UUIDv7 ID, or "-" for IDs
// without one.
func createdAt(id types.SubscriptionID) string {
	ts := types.SubscriptionIDTime(id)
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format(time.RFC3339)
}

// subscriptionFile is the YAML import format.
type subscriptionFile struct {
	Destination   string               `yaml:"destination"`
	Subscriptions []types.Subscription `yaml:"subscriptions"`
}

func runSubscriptionsImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := readFile(cmd, args[0])
	if err != nil {
		return err
	}
	var file subscriptionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode %s: %w", args[0], err)
	}

	conn, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	for i, sub := range file.Subscriptions {
		if sub.Destination == "" {
			sub.Destination = file.Destination
		}
		if sub.Destination == "" {
			sub.Destination = cfg.Dispatch.Destination
		}
		created, err := store.Create(ctx, sub)
		if err != nil {
			return fmt.Errorf("subscription %d (%s): %w", i, sub.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", created.ID, created.Name)
	}
	return nil
}

func setEnabled(cmd *cobra.Command, rawID string, enabled bool) error {
	ctx := cmd.Context()
	id, err := types.ParseSubscriptionID(rawID)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", rawID, err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return store.SetEnabled(ctx, id, enabled)
}

func runSubscriptionsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := types.ParseSubscriptionID(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	conn, store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	return store.Delete(ctx, id)
}
