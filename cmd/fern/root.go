package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Ramsey-B/fern/config"
)

// flagKeys maps command-line flags onto the configuration keys they override
var flagKeys = map[string]string{
	"test":                    "mode.test",
	"remove-only":             "mode.removeOnly",
	"author":                  "output.author",
	"evaluation-mode":         "output.evaluationMode",
	"locator":                 "locator.type",
	"profile":                 "locator.profile",
	"fixed-depth":             "locator.fixedDepth",
	"distance-cutoff":         "locator.distanceCutOff",
	"ignore-initial-location": "locator.ignoreInitialLocation",
	"use-origin-locator":      "locator.useOriginLocator",
}

type options struct {
	configFile string
	eventID    string
	begin      string
	end        string
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "fern",
		Short: "Merge and relocate origins contributed by two agencies",
		Long: `fern merges the preferred origin of an event with the latest origin of a
second agency, relocates the merged arrival set and publishes the result.

Without --event or --begin/--end it consumes the catalog notification stream
until interrupted.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := config.Prepare(v, opts.configFile); err != nil {
				return err
			}
			applyFlagOverrides(cmd, v)
			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "path to a config file")
	flags.StringVarP(&opts.eventID, "event", "E", "", "process a single event by id")
	flags.StringVar(&opts.begin, "begin", "", "start of the event creation window (ISO-8601)")
	flags.StringVar(&opts.end, "end", "", "end of the event creation window (ISO-8601)")
	flags.Bool("test", false, "compute but do not persist or emit any change")
	flags.Bool("remove-only", false, "only remove stale merged origins")
	flags.String("author", "", "author of merged origins")
	flags.String("evaluation-mode", "", "evaluation mode of merged origins (manual|automatic)")
	flags.String("locator", "", "default locator")
	flags.String("profile", "", "default locator profile")
	flags.Float64("fixed-depth", 0, "fix the depth of every relocation (km)")
	flags.Float64("distance-cutoff", 0, "ignore arrivals beyond this distance (deg)")
	flags.Bool("ignore-initial-location", false, "let the locator ignore the initial location")
	flags.Bool("use-origin-locator", false, "try the locator recorded on the merge candidate first")

	return cmd
}

// applyFlagOverrides writes every flag the user set over its configuration key
func applyFlagOverrides(cmd *cobra.Command, v *viper.Viper) {
	for flag, key := range flagKeys {
		if cmd.Flags().Changed(flag) {
			v.Set(key, cmd.Flags().Lookup(flag).Value.String())
		}
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime reads an ISO-8601 timestamp. Times without a zone are UTC.
func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected ISO-8601", value)
}

// window resolves the processing window. An omitted begin is open-ended and an
// omitted end is now.
func (o options) window(now time.Time) (time.Time, time.Time, error) {
	var begin time.Time
	end := now
	var err error
	if o.begin != "" {
		if begin, err = parseTime(o.begin); err != nil {
			return begin, end, err
		}
	}
	if o.end != "" {
		if end, err = parseTime(o.end); err != nil {
			return begin, end, err
		}
	}
	return begin, end, nil
}

func (o options) hasWindow() bool {
	return o.begin != "" || o.end != ""
}
