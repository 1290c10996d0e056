package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/risk"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type options struct {
	weightsFile string // TOML weights overlay
	now         string // reference time for recency, RFC3339
	format      string // table, json or yaml
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Score learner engagement signals offline",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %s", opts.logLevel)
			}
			logrus.SetLevel(level)
			switch opts.format {
			case formatTable, formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unknown format %q (want table, json or yaml)", opts.format)
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.weightsFile, "weights-file", "", "TOML file overriding the default risk weights")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "Reference time for login recency (RFC3339, default: current time)")
	root.PersistentFlags().StringVar(&opts.format, "format", formatTable, "Output format (table, json, yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log", "warn", "Log level (trace, debug, info, warn, error)")

	root.AddCommand(newAssessCmd(opts), newBatchCmd(opts), newWeightsCmd(opts))
	return root
}

func newAssessCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "assess FILE",
		Short: "Score a single learner's signals (YAML or JSON, - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			in, err := readSignals(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if len(in) != 1 {
				return fmt.Errorf("assess expects one signals document, got %d (use batch)", len(in))
			}
			a, err := engine.Assess(in[0])
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"score": a.Score, "label": a.Label}).Debug("Assessed learner")
			return writeAssessment(cmd.OutOrStdout(), opts.format, a)
		},
	}
}

func newBatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Score a list of learners' signals in order (YAML or JSON, - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			in, err := readSignals(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			items, err := engine.BatchAssess(in)
			if err != nil {
				return err
			}
			logrus.WithField("count", len(items)).Debug("Assessed batch")
			return writeBatch(cmd.OutOrStdout(), opts.format, items)
		},
	}
}

func newWeightsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "weights",
		Short: "Print the effective risk weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine()
			if err != nil {
				return err
			}
			w := engine.Weights()
			if opts.format == formatTable {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "completion\t%.2f\n", w.Completion)
				fmt.Fprintf(tw, "quiz\t%.2f\n", w.Quiz)
				fmt.Fprintf(tw, "missed\t%.2f\n", w.Missed)
				fmt.Fprintf(tw, "login\t%.2f\n", w.Login)
				return tw.Flush()
			}
			return encode(cmd.OutOrStdout(), opts.format, w)
		},
	}
}

// engine builds a risk engine from the weights overlay and reference time
func (o *options) engine() (*risk.Engine, error) {
	store, err := config.NewWeightStore(model.DefaultRiskWeights(), o.weightsFile)
	if err != nil {
		return nil, err
	}
	var clk clock.Clock = clock.Real{}
	if o.now != "" {
		t, err := time.Parse(time.RFC3339, o.now)
		if err != nil {
			return nil, fmt.Errorf("invalid --now %q: %w", o.now, err)
		}
		clk = clock.NewFake(t)
	}
	return risk.NewEngine(store, clk), nil
}

func writeAssessment(w io.Writer, format string, a model.RiskAssessment) error {
	if format != formatTable {
		return encode(w, format, a)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "score\t%.4f\n", a.Score)
	fmt.Fprintf(tw, "label\t%s\n", a.Label)
	fmt.Fprintf(tw, "completion\t%.4f\n", a.Components.Completion)
	fmt.Fprintf(tw, "quiz\t%.4f\n", a.Components.Quiz)
	fmt.Fprintf(tw, "missed\t%.4f\n", a.Components.Missed)
	fmt.Fprintf(tw, "login\t%.4f\n", a.Components.Login)
	return tw.Flush()
}

func writeBatch(w io.Writer, format string, items []model.BatchItem) error {
	if format != formatTable {
		return encode(w, format, items)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSCORE\tLABEL")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\n", it.Index, it.Score, it.Label)
	}
	return tw.Flush()
}

func encode(w io.Writer, format string, v interface{}) error {
	if format == formatYAML {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
