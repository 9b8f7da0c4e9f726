package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/dselans/funnyimg/config"
	"github.com/dselans/funnyimg/converter"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}

	setupLogging(cfg)

	if !cfg.CLI.Quiet {
		displayConfig(cfg)
	}

	c, err := converter.New(cfg)
	if err != nil {
		logrus.Errorf("unable to create converter: %s", err)
		os.Exit(1)
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := c.Run(shutdownCtx); err != nil {
		logrus.Errorf("error during conversion: %+v", err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	// Already validated by config
	level, _ := logrus.ParseLevel(cfg.TOML.Config.LogLevel)
	logrus.SetLevel(level)

	if cfg.CLI.Debug {
		logrus.Info("debug mode enabled")
	}

	if cfg.CLI.DisableColor {
		color.NoColor = true
		logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}
}

func displayConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	logrus.Info("funnyimg settings:")
	logrus.Info("  [CLI]")
	logrus.Infof("  version: %s", config.VERSION)
	logrus.Infof("  debug: %v", cfg.CLI.Debug)
	logrus.Infof("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Infof("  report output: %s", cfg.CLI.ReportOutput)
	logrus.Infof("  info: %v", cfg.CLI.Info)
	logrus.Infof("  disable color: %v", cfg.CLI.DisableColor)
	logrus.Infof("  quiet: %v", cfg.CLI.Quiet)
	logrus.Info("")
	logrus.Info("  [CONFIG]")
	logrus.Infof("  config.log_level: %s", cfg.TOML.Config.LogLevel)
	logrus.Infof("  config.report_interval: %s", cfg.TOML.Config.ReportInterval)
	logrus.Infof("  config.max_pixels: %d", cfg.TOML.Config.MaxPixels)
	logrus.Info("")
	logrus.Info("  [SOURCE]")
	logrus.Infof("  source.file: %s", cfg.TOML.Source.File)
	logrus.Infof("  source.file_type: %s", cfg.TOML.Source.FileType)
	logrus.Infof("  source.format: %s", cfg.TOML.Source.Format)
	logrus.Info("")
	logrus.Info("  [OUTPUT]")
	logrus.Infof("  output.file: %s", cfg.TOML.Output.File)
	logrus.Infof("  output.char_table: %s", cfg.TOML.Output.CharTable)
	logrus.Infof("  output.width: %d", cfg.TOML.Output.Width)
	logrus.Infof("  output.color: %v", cfg.TOML.Output.Color)
	logrus.Infof("  output.invert: %v", cfg.TOML.Output.Invert)
}
