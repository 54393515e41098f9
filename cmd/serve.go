package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/praetorian-inc/aztopo/internal/message"
	"github.com/praetorian-inc/aztopo/internal/server"
	"github.com/praetorian-inc/aztopo/pkg/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept topology and connectivity documents over HTTP",
	Example: `  aztopo serve --listen :8080
  curl -X POST --data @topology.json localhost:8080/v1/topology`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sink, closeSink, err := openSink(ctx, false)
		if err != nil {
			return err
		}
		defer closeSink()

		srv := server.New(sink, ingest.Options{
			BatchSize: viper.GetInt("batch-size"),
			Logger:    slog.Default(),
		})

		message.Banner()
		errc := make(chan error, 1)
		go func() {
			errc <- srv.Listen(viper.GetString("listen"))
		}()
		message.Info("Serving on %s (sink %s)", viper.GetString("listen"), viper.GetString("sink"))

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return <-errc
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	bindFlags(serveCmd.Flags(), map[string]string{"listen": "listen"})
}
