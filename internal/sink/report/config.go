package report

import "fmt"

// Config holds report sink options.
type Config struct {
	Dir string `mapstructure:"dir"`
}

func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("report.dir must be set when the sink type is 'report'")
	}
	return nil
}
