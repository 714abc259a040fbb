package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/radwatch/gammacore/internal/processing"
	"github.com/radwatch/gammacore/pkg/config"
	"github.com/radwatch/gammacore/pkg/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis daemon with a worker pool and HTTP ingest.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		serverCfg := config.DefaultServerConfig()
		if err := viper.UnmarshalKey("server", serverCfg); err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("port"); v != "" {
			serverCfg.Port = v
		}
		if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
			serverCfg.WorkerCount = v
		}
		if v, _ := cmd.Flags().GetString("webhook-url"); v != "" {
			serverCfg.WebhookURL = v
		}
		if v, _ := cmd.Flags().GetString("history-path"); v != "" {
			serverCfg.HistoryPath = v
		}
		if cmd.Flags().Changed("profile") {
			serverCfg.EnableProfiling, _ = cmd.Flags().GetBool("profile")
		}

		srv := server.New(server.Options{
			Config:       cfg,
			ServerConfig: serverCfg,
			Processor:    processing.New().Process,
		})
		setupGracefulShutdown(srv)

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("port", "", "HTTP listen port")
	serveCmd.Flags().Int("workers", 0, "worker pool size")
	serveCmd.Flags().String("webhook-url", "", "push analysis results to this endpoint")
	serveCmd.Flags().String("history-path", "", "sqlite history database path")
	serveCmd.Flags().Bool("profile", false, "enable the pprof profiling server")
	rootCmd.AddCommand(serveCmd)
}

func setupGracefulShutdown(srv *server.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("received shutdown signal")
		if err := srv.Shutdown(); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
		os.Exit(0)
	}()
}
