// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/motion_bridge/internal/app"
	"github.com/relabs-tech/motion_bridge/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "motion_bridge",
	Short: "stream device motion sensors to MQTT, websockets and Kafka",
	Long:  "stream device motion sensors to MQTT, websockets and Kafka",
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("config")
		if env := os.Getenv("MOTION_BRIDGE_CONFIG"); path == config.DefaultConfigPath && env != "" {
			path = env
		}
		if err := config.InitGlobal(path); err != nil {
			return err
		}
		app.ConfigureLogging(config.Get().LogLevel)
		log.Debugf("using config file %s", path)
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:        "serve",
	SuggestFor: []string{"ru", "ser"},
	Short:      "serve sensor streams until interrupted",
	Long: `serve opens the configured sensor subsystem and accepts stream requests on the
MQTT command topic and on the /ws websocket endpoint. Samples of AUTOSTART sensors
are published to <TOPIC_SENSOR_PREFIX>/<sensor> (and Kafka when KAFKA_BROKERS is set).
`,
	Example: `  motion_bridge serve --config=/path/to/motion_config.txt`,
	RunE: func(*cobra.Command, []string) error {
		log.Println("starting motion bridge")
		return app.RunBridge()
	},
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "print every sample published by the bridge",
	RunE: func(*cobra.Command, []string) error {
		return app.RunConsole()
	},
}

var displayCmd = &cobra.Command{
	Use:   "display",
	Short: "show the latest samples of two sensors on SSD1306 OLEDs",
	RunE: func(*cobra.Command, []string) error {
		return app.RunDisplay()
	},
}

var probeCmd = &cobra.Command{
	Use:        "probe",
	SuggestFor: []string{"pro", "pr", "prob"},
	Short:      "list which sensors the configured subsystem offers",
	Long: `probe lists every known sensor and whether the configured subsystem offers it.
With --watch each available sensor is streamed until its first sample arrives.
`,
	Example: `  motion_bridge probe --watch --timeout=3s`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		watch, _ := cmd.Flags().GetBool("watch")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return app.RunProbe(watch, timeout)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultConfigPath, "configuration file (KEY=VALUE)")
	probeCmd.Flags().Bool("watch", false, "wait for a first sample from each available sensor")
	probeCmd.Flags().Duration("timeout", 2*time.Second, "how long --watch waits per sensor")

	rootCmd.AddCommand(serveCmd, consoleCmd, displayCmd, probeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
