package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cogvm/cog/internal/adapters/file"
	"github.com/cogvm/cog/internal/adapters/memory"
	redisstore "github.com/cogvm/cog/internal/adapters/redis"
	"github.com/cogvm/cog/internal/catalog"
	"github.com/cogvm/cog/internal/cli"
	"github.com/cogvm/cog/internal/server"
)

// serveConfig is the yaml file read by --config. Flags take precedence
// over it, and it over the defaults.
type serveConfig struct {
	Addr      string      `yaml:"addr"`
	Puzzles   string      `yaml:"puzzles"`
	Solutions string      `yaml:"solutions"`
	Redis     redisConfig `yaml:"redis"`
}

type redisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the execution service",
	Long: `Starts the websocket execution service with the puzzle catalog and the
solution REST API.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("redis", "", "Redis address for solution storage (default: in-memory)")
	serveCmd.Flags().String("solutions", "", "Directory for file-based solution storage")
	serveCmd.Flags().String("config", "", "YAML config file")
}

func loadServeConfig(cmd *cobra.Command) (serveConfig, error) {
	cfg := serveConfig{Addr: ":8080"}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Addr == "" {
			cfg.Addr = ":8080"
		}
	}

	if cmd.Flags().Changed("addr") {
		cfg.Addr, _ = cmd.Flags().GetString("addr")
	}
	if cmd.Flags().Changed("puzzles") {
		cfg.Puzzles, _ = cmd.Flags().GetString("puzzles")
	}
	if cmd.Flags().Changed("redis") {
		cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
	}
	if cmd.Flags().Changed("solutions") {
		cfg.Solutions, _ = cmd.Flags().GetString("solutions")
	}

	return cfg, nil
}

func runServe(cmd *cobra.Command) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	source, err := cli.OpenSource(cfg.Puzzles, logger)
	if err != nil {
		return err
	}

	// Redis wins over the solution directory, which wins over the
	// in-memory fallback.
	var store catalog.SolutionStore
	switch {
	case cfg.Redis.Addr != "":
		redisStore := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer redisStore.Close()
		store = redisStore
	case cfg.Solutions != "":
		store = file.New(cfg.Solutions)
	default:
		store = memory.New()
	}

	svc := server.New(source,
		server.WithLogger(logger),
		server.WithSolutionStore(store),
	)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: svc.Handler(),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		fmt.Printf("Starting execution service on %s\n", srv.Addr)
		if cfg.Puzzles != "" {
			fmt.Printf("Serving boards from: %s\n", cfg.Puzzles)
		} else {
			fmt.Println("Serving the embedded puzzle set")
		}
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		fmt.Println("Execution service stopped gracefully")
	}

	return nil
}
