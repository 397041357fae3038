// Command nexus-analyze runs nexus analyses and VDA models from the shell.
// With --input it runs fully offline against the bundled or a file reference dataset
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"nexuscalc/internal/core/version"
	"nexuscalc/internal/platform/config/raw"
	"nexuscalc/internal/platform/logger"

	"github.com/spf13/cobra"
)

// globals are the persistent flags shared by every command
type globals struct {
	refdata string
	client  string
}

func main() {
	// a local .env is optional; real env wins
	_ = raw.LoadDotenv()

	// logs go to stderr so tables and --json output stay clean
	opt := logger.FromEnv()
	opt.Writer = os.Stderr
	opt.Level = raw.New().Prefix("LOG_").Get("LEVEL", "warn")
	logger.Init(opt)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "nexus-analyze",
		Short:         "Sales tax nexus, liability and voluntary disclosure analysis",
		Version:       version.WithService("nexus-analyze").Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.refdata, "refdata", "", "reference dataset YAML (default: CORE_REFDATA_SOURCE, bundled dataset)")
	root.PersistentFlags().StringVar(&g.client, "client", "", "client id (uuid) for stored transactions and persisted runs")

	root.AddCommand(analyzeCmd(g), vdaCmd(g), importCmd(g), refdataCmd(g), dbCmd(g))
	return root
}
