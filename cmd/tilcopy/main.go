// Command tilcopy copies TIL terms stored as YAML documents and checks
// that copies are faithful.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/til/internal/cli"
	"github.com/orizon-lang/til/internal/tilfile"
)

const toolName = "tilcopy"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		cli.ExitWithError("%v", err)
	}
}

// state is shared by all subcommands once flags are parsed.
type state struct {
	cfg    *cli.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	var configPath, logLevel string
	st := &state{}

	root := &cobra.Command{
		Use:           toolName,
		Short:         "Copy and check TIL terms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			level, err := cli.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = cli.NewLogger(cmd.ErrOrStderr(), level)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (YAML or JSON)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(newCopyCmd(st), newVerifyCmd(st), newVersionCmd())
	return root
}

// decodeAll reads files concurrently. Results are in the order of files.
func decodeAll(ctx context.Context, files []string) ([]*tilfile.Document, error) {
	docs := make([]*tilfile.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := tilfile.DecodeFile(f)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
