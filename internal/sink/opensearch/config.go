package opensearch

import (
	"fmt"
	"time"
)

// Config holds OpenSearch sink connection settings.
type Config struct {
	URL      string            `mapstructure:"url"` // http(s)://host:9200
	Index    string            `mapstructure:"index"`
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Host     string            `mapstructure:"host"`
	Labels   map[string]string `mapstructure:"labels"`
	Timeout  time.Duration     `mapstructure:"timeout"`
}

func (c Config) Validate() error {
	if c.URL == "" || c.Index == "" {
		return fmt.Errorf("opensearch sink requires url and index")
	}
	return nil
}
