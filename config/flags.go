package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags onto the environment keys they override.
var flagKeys = map[string]string{
	"port":        "SERVER_PORT",
	"static-dir":  "STATIC_DIR",
	"health-tree": "HEALTH_TREE_FILE",
	"log-sink":    "LOG_SINK_URL",
}

// FromArgs loads the configuration with command line overrides. Flags left unset fall
// through to the environment and .env files.
func FromArgs(name string, args []string) (Config, error) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.Int("port", 0, "HTTP listen port")
	flags.String("static-dir", "", "directory holding the browser console")
	flags.String("health-tree", "", "YAML file describing the service dependency tree")
	flags.String("log-sink", "", "JSON line endpoint receiving browser logs")
	noScheduler := flags.Bool("no-scheduler", false, "disable the health poll and stale upload jobs")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	for flag, key := range flagKeys {
		if !flags.Changed(flag) {
			continue
		}
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return Config{}, err
		}
	}
	if *noScheduler {
		v.Set("SCHEDULER_ENABLED", false)
	}

	return Load(v)
}
