package rotate

import "fmt"

// Config holds rotating log sink options. Each worker writes <dir>/<name>.log.
type Config struct {
	Dir        string `mapstructure:"dir"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
}

func (c *Config) Default() {
	c.Dir = "."
	c.MaxSizeMB = 100
	c.MaxBackups = 5
	c.MaxAgeDays = 7
}

func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("rotate.dir must be set when the sink type is 'rotate'")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("rotate limits must not be negative")
	}
	return nil
}
