package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benjaminschreck/go-finiquito/pkg/history"
	"github.com/benjaminschreck/go-finiquito/pkg/merge"
	"github.com/benjaminschreck/go-finiquito/pkg/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web front end",
		Long: `Serve starts an HTTP server with an upload form for the workbook and the
template. Generated documents are listed under /descargas.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	flags := cmd.Flags()
	flags.String("addr", "", "listen address")
	flags.String("upload-dir", "", "directory for uploaded files")
	flags.String("processed-dir", "", "directory for generated documents")
	_ = a.viper.BindPFlag("server.addr", flags.Lookup("addr"))
	_ = a.viper.BindPFlag("server.upload_dir", flags.Lookup("upload-dir"))
	_ = a.viper.BindPFlag("server.processed_dir", flags.Lookup("processed-dir"))
	return cmd
}

func (a *app) runServe(cmd *cobra.Command) error {
	cfg := a.cfg
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	mlog := merge.FromZap(a.logger)
	cache := merge.NewTemplateCacheWithTTL(cfg.CacheTTL)
	opts := []server.Option{
		server.WithEngine(&merge.Engine{
			Overlay: cfg.FormattingOverlay(),
			Strict:  cfg.StrictMode,
			Logger:  mlog,
		}),
		server.WithTemplateCache(cache),
	}

	if cfg.History.Path != "" {
		db, err := history.Open(history.DefaultConfig(cfg.History.Path), a.logger)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, server.WithHistory(history.NewStore(db, a.logger)))
	} else {
		a.logger.Info("History disabled")
	}

	srv, err := server.NewServer(server.ConfigFrom(cfg), a.logger, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Serving", zap.String("addr", cfg.Server.Addr),
		zap.String("processed_dir", cfg.Server.ProcessedDir))
	return srv.Start(ctx)
}
