/*
 * === This file is part of ALICE O² ===
 *
 * Copyright 2024 CERN and copyright holders of ALICE O².
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 * In applying this license CERN does not waive the privileges and
 * immunities granted to it by virtue of its status as an
 * Intergovernmental Organization or submit itself to any jurisdiction.
 */


package core

import (
	"fmt"
	"time"

	"github.com/AliceO2Group/fecctl/common/logger"
	"github.com/AliceO2Group/fecctl/core/device"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func setDefaults() error {
	viper.Set("component", "fecctld")

	viper.SetDefault("httpListenPort", 47110)
	viper.SetDefault("verbose", false)
	viper.SetDefault("veryVerbose", false)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafkaEndpoints", []string{"localhost:9092"})
	viper.SetDefault("redis.address", "")
	viper.SetDefault("redis.channel", "fecctl.state")
	viper.SetDefault("stateListener.url", "")
	viper.SetDefault("stateListener.timeout", 5*time.Second)
	viper.SetDefault("initializeOnStartup", false)
	viper.SetDefault("shutdownTimeout", 30*time.Second)
	viper.SetDefault("config", "")
	return nil
}

func setFlags() error {
	pflag.String("config", viper.GetString("config"), "YAML configuration file with the device list")
	pflag.Int("httpListenPort", viper.GetInt("httpListenPort"), "Port of the fecctld HTTP command surface")
	pflag.Bool("verbose", viper.GetBool("verbose"), "Verbose logging")
	pflag.Bool("veryVerbose", viper.GetBool("veryVerbose"), "Very verbose logging")
	pflag.String("metrics.path", viper.GetString("metrics.path"), "URI path of the Prometheus endpoint")
	pflag.Bool("kafka.enabled", viper.GetBool("kafka.enabled"), "Publish state changes and error reports to Kafka")
	pflag.StringSlice("kafkaEndpoints", viper.GetStringSlice("kafkaEndpoints"), "List of Kafka brokers")
	pflag.String("redis.address", viper.GetString("redis.address"), "Redis server (host:port or redis:// URL) to publish state changes to, empty to disable")
	pflag.String("redis.channel", viper.GetString("redis.channel"), "Redis channel for state changes")
	pflag.String("stateListener.url", viper.GetString("stateListener.url"), "URL to POST state changes to, empty to disable")
	pflag.Duration("stateListener.timeout", viper.GetDuration("stateListener.timeout"), "Timeout of a state listener notification")
	pflag.Bool("initializeOnStartup", viper.GetBool("initializeOnStartup"), "Send Initialize to every device at startup")
	pflag.Duration("shutdownTimeout", viper.GetDuration("shutdownTimeout"), "Time allowed to bring devices down on SIGINT/SIGTERM")

	pflag.Parse()
	return viper.BindPFlags(pflag.CommandLine)
}

// Bind environment variables with the prefix FECCTL
// e.g. FECCTL_HTTPLISTENPORT
func bindEnvironmentVariables() {
	viper.SetEnvPrefix("FECCTL")
	viper.AutomaticEnv()
}

func readConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot read configuration file %s: %w", path, err)
	}
	log.WithField("file", viper.ConfigFileUsed()).Debug("configuration file loaded")
	return nil
}

// NewConfig is the constructor for a new config.
func NewConfig() (err error) {
	if err = setDefaults(); err != nil {
		return
	}
	if err = setFlags(); err != nil {
		return
	}
	bindEnvironmentVariables()
	if err = readConfigFile(); err != nil {
		return
	}

	logger.SetVerbosity(logrus.StandardLogger(), viper.GetBool("verbose"), viper.GetBool("veryVerbose"))
	return
}

// deviceConfigs returns the configured devices with deviceDefaults applied.
func deviceConfigs(v *viper.Viper) (configs []device.Config, err error) {
	var defaults device.Config
	if v.IsSet("deviceDefaults") {
		if err = v.UnmarshalKey("deviceDefaults", &defaults); err != nil {
			return nil, fmt.Errorf("bad deviceDefaults: %w", err)
		}
	}
	var raw []device.Config
	if err = v.UnmarshalKey("devices", &raw); err != nil {
		return nil, fmt.Errorf("bad device list: %w", err)
	}

	configs = make([]device.Config, 0, len(raw))
	for _, cfg := range raw {
		merged, err := cfg.WithDefaults(defaults)
		if err != nil {
			return nil, err
		}
		configs = append(configs, merged)
	}
	return configs, nil
}
