package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"veritas-hq/sentinel/pkg/config"
	"veritas-hq/sentinel/pkg/scheduler"
	"veritas-hq/sentinel/pkg/telemetry/logging"
)

var checkFlags struct {
	tenant   string
	policy   string
	jsonOut  bool
	timeout  time.Duration
	fromFile string
}

var checkCmd = &cobra.Command{
	Use:   "check [content...]",
	Short: "Moderate content from the command line",
	Long: `Run a single moderation check and print the decision.

Content is taken from the arguments, from --file, or from stdin when
neither is given.

Examples:
  sentinel check --tenant acme "message to moderate"
  sentinel check --tenant acme --file comment.txt
  cat comment.txt | sentinel check --tenant acme --json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFlags.tenant, "tenant", "t", "", "tenant the check is scoped to")
	checkCmd.Flags().StringVar(&checkFlags.policy, "policy", "", "override the default policy")
	checkCmd.Flags().BoolVar(&checkFlags.jsonOut, "json", false, "print the full decision as JSON")
	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", 30*time.Second, "overall check timeout")
	checkCmd.Flags().StringVarP(&checkFlags.fromFile, "file", "f", "", "read content from a file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	content, err := checkContent(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if checkFlags.policy != "" {
		cfg.Policy.DefaultPolicy = checkFlags.policy
	}

	// One-shot runs keep logs on stderr so stdout stays parseable.
	logger, err := logging.New(logging.Config{
		Level:  "warn",
		Format: cfg.Telemetry.Logging.Format,
		Writer: os.Stderr,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), checkFlags.timeout)
	defer cancel()

	prov, err := buildProvider(cfg.Provider)
	if err != nil {
		return err
	}
	defer prov.Close()

	src, err := buildPolicySource(cfg.Policy, logger)
	if err != nil {
		return err
	}
	store, err := buildPolicyStore(ctx, src)
	if err != nil {
		return err
	}
	tenants, err := buildTenantCache(cfg.Tenants)
	if err != nil {
		return err
	}

	// No limiter for one-shot CLI checks; admission is a service concern.
	pipe := buildPipeline(cfg, checkFlags.tenant, prov, store, nil, tenants, nil, logger)
	client := scheduler.NewClient(pipe)
	client.BlockOnRateLimit = cfg.Scheduler.BlockOnRateLimit

	d, err := client.Check(ctx, content)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	if checkFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	}

	if d.Safe {
		fmt.Printf("safe (%s)\n", d.Action)
	} else {
		fmt.Printf("unsafe (%s)\n", d.Action)
		for _, trig := range d.Triggered {
			fmt.Printf("  %s: score %.2f >= threshold %.2f -> %s\n",
				trig.Category, trig.Score, trig.Threshold, trig.Action)
		}
	}
	if !d.Safe {
		os.Exit(1)
	}
	return nil
}

func checkContent(args []string) (string, error) {
	if checkFlags.fromFile != "" {
		data, err := os.ReadFile(checkFlags.fromFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
