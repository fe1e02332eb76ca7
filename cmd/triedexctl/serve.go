package main

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ogriffin/triedex"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Open the index read-only and expose prometheus metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")

			v := viper.New()
			v.SetEnvPrefix("TRIEDEXCTL")
			v.AutomaticEnv()
			v.SetDefault("listen_addr", ":9090")
			v.SetDefault("cache_size", 4096)

			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			defer logger.Sync()

			reg := prometheus.NewRegistry()
			metrics := triedex.NewMetrics("triedexctl")

			idx, err := triedex.Open(path, triedex.Options{
				ReadOnly:         true,
				Logger:           logger,
				Metrics:          metrics,
				DecodedCacheSize: v.GetInt("cache_size"),
			})
			if err != nil {
				return err
			}
			defer idx.Close()

			if err := metrics.Register(reg, idx); err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			srv := &http.Server{
				Addr:         v.GetString("listen_addr"),
				Handler:      mux,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			logger.Info("triedexctl serve listening", zap.String("addr", srv.Addr))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	return cmd
}
