package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sevigo/resizer/internal/client"
)

var (
	serverURL      string
	requestTimeout time.Duration
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var rootCmd = &cobra.Command{
	Use:   "resizer-cli",
	Short: "resizer-cli is the command-line interface for the resize service.",
	Long:  `A CLI for sending images to a running resize service, inspecting its worker lane and load testing it.`,
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Base URL of the resize service")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 60*time.Second, "Per-request timeout")

	if err := viper.BindPFlag("SERVER_URL", rootCmd.PersistentFlags().Lookup("server")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
	if err := viper.BindPFlag("TIMEOUT", rootCmd.PersistentFlags().Lookup("timeout")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("RESIZER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// serverAddress is the resolved service URL: --server, then RESIZER_SERVER_URL, then the flag default.
func serverAddress() string {
	return viper.GetString("SERVER_URL")
}

// newClient builds a service client from flags and RESIZER_* environment variables.
func newClient() *client.Client {
	return client.New(serverAddress(), viper.GetDuration("TIMEOUT"))
}
