package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/user/kvmon/internal/client"
	"github.com/user/kvmon/internal/monitor"
)

var (
	tailStrict bool
	tailJSON   bool
)

func init() {
	rootCmd.AddCommand(tailCmd)
	tailCmd.Flags().BoolVar(&tailStrict, "strict", false, "fail on malformed monitor lines")
	tailCmd.Flags().BoolVar(&tailJSON, "json", false, "print one JSON object per event")
}

var tailCmd = &cobra.Command{
	Use:   "tail [addr]",
	Short: "Print the live command stream to stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTail,
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	addr := cfg.Target.Addr
	if len(args) == 1 {
		addr = args[0]
	}

	conn, err := client.Dial(addr, client.DialOptions{
		Password: cfg.Target.Password,
		Database: cfg.Target.Database,
	})
	if err != nil {
		return err
	}
	cl := client.New(conn, nil)
	defer cl.Close()

	var opts []monitor.Option
	if tailStrict || cfg.Strict {
		opts = append(opts, monitor.Strict())
	}
	consumer, err := monitor.New(cl, opts...)
	if err != nil {
		return fmt.Errorf("start monitoring %s: %w", addr, err)
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "monitoring %s, ctrl-c to stop\n", conn.RemoteAddr())

	enc := json.NewEncoder(os.Stdout)
	for ev := range consumer.Stream(ctx) {
		if tailJSON {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		fmt.Println(formatEvent(ev))
	}
	fmt.Fprintf(os.Stderr, "stopped after %d events\n", consumer.Key())
	return nil
}

// formatEvent renders one event as a terminal column line. Arguments
// are unquoted for readability when they split cleanly, left raw when
// they do not.
func formatEvent(ev monitor.Event) string {
	ts := time.Unix(int64(ev.Timestamp), 0).UTC().Format("15:04:05")
	origin := fmt.Sprintf("db%d", ev.Database)
	if ev.HasClient() {
		origin += " " + ev.Client
	}

	display := ev.Arguments
	if words, err := shellquote.Split(ev.Arguments); err == nil {
		display = strings.Join(words, " ")
	}
	if display == "" {
		return fmt.Sprintf("%s  [%s]  %s", ts, origin, ev.Command)
	}
	return fmt.Sprintf("%s  [%s]  %s %s", ts, origin, ev.Command, display)
}
