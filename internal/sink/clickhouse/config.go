package clickhouse

import "fmt"

// Config holds ClickHouse sink connection settings.
type Config struct {
	Addr     string            `mapstructure:"addr"` // http(s)://host:8123 or native host:9000
	Database string            `mapstructure:"database"`
	Table    string            `mapstructure:"table"` // table or db.table
	User     string            `mapstructure:"user"`
	Password string            `mapstructure:"password"`
	Host     string            `mapstructure:"host"` // override host; default os.Hostname()
	Labels   map[string]string `mapstructure:"labels"`
}

func (c Config) Validate() error {
	if c.Addr == "" || c.Table == "" {
		return fmt.Errorf("clickhouse sink requires addr and table")
	}
	return nil
}

// FullTable returns the table qualified with the database when needed.
func (c Config) FullTable() string {
	if c.Database != "" && !containsDot(c.Table) {
		return c.Database + "." + c.Table
	}
	return c.Table
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}
