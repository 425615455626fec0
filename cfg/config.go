package cfg

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the top-level mount configuration, unmarshaled from flags
// (and optionally a config file) the way gcsfuse's own cfg.Config is:
// BindFlags wires pflag definitions to viper, and viper.Unmarshal fills
// this struct afterward.
type Config struct {
	To          string      `mapstructure:"to"`
	Volume      string      `mapstructure:"volume"`
	LogLevel    LogSeverity `mapstructure:"log-level"`
	AllowRoot   bool        `mapstructure:"allow-root"`
	ReadOnly    bool        `mapstructure:"read-only"`
	Uid         int64       `mapstructure:"uid"`
	Gid         int64       `mapstructure:"gid"`
	DefaultMode Octal       `mapstructure:"default-mode"`
}

// BindFlags registers this package's persistent flags on flagSet and
// binds each to viper, so either CLI flags or a config file can supply
// a value.
func BindFlags(flagSet *pflag.FlagSet) error {
	flagSet.String("to", "", "path where the remote filesystem will be mounted")
	flagSet.String("volume", "", "name of the mounted filesystem volume")
	flagSet.StringP("log-level", "v", string(SeverityInfo), "one of error, warn, info, debug, trace")
	flagSet.Bool("allow-root", false, "allow root to access the mount")
	flagSet.Bool("read-only", false, "has no effect: the filesystem is always mounted read-write")
	flagSet.Int64("uid", -1, "override the reported owner uid for permission checks")
	flagSet.Int64("gid", -1, "override the reported owner gid for permission checks")
	flagSet.String("default-mode", "755", "octal default mode substituted when the backend reports none")

	for _, name := range []string{"to", "volume", "log-level", "allow-root", "read-only", "uid", "gid", "default-mode"} {
		if err := viper.BindPFlag(name, flagSet.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}
