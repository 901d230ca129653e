/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "topicmon",
		Short: "topicmon monitors tech blogs and ranks the topics they discuss.",
		Long: `topicmon fetches the RSS feeds listed in an OPML file, asks a language
model to extract and group the topics discussed, scores each topic's heat
and writes a ranked Markdown report three times a day.`,
		SilenceUsage: true,
	}

	// Initialize configuration
	cobra.OnInitialize(initConfig)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.topicmon.yaml or $HOME/.topicmon.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewDaemonCmd())
	rootCmd.AddCommand(NewReportCmd())
	rootCmd.AddCommand(NewShowCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewCacheCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Load configuration using the centralized config module
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Configure(logger.Options{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
}

// pipelineConfig returns the configuration after checking the settings
// needed to build a pipeline. Commands that only read local data skip it.
func pipelineConfig(withSources bool) (*config.Config, error) {
	cfg := config.Get()
	if err := cfg.ValidatePipeline(withSources); err != nil {
		return nil, err
	}
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// slotAndDate reads the --slot and --date flags shared by several commands.
func slotAndDate(cmd *cobra.Command) (core.TimeSlot, string, error) {
	slotName, _ := cmd.Flags().GetString("slot")
	slot, err := core.ParseTimeSlot(slotName)
	if err != nil {
		return "", "", err
	}

	date, _ := cmd.Flags().GetString("date")
	return slot, date, nil
}

func addSlotFlags(cmd *cobra.Command, dateHelp string) {
	cmd.Flags().String("slot", "", "time slot: morning, afternoon or evening")
	cmd.Flags().String("date", "", dateHelp)
	_ = cmd.MarkFlagRequired("slot")
}
