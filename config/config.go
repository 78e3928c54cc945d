package config

import (
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"

	"github.com/viaorg/viaorg/geo"
)

const (
	// DefaultDatabase is a name of GeoIP database which is looked up in
	// the current working directory.
	DefaultDatabase = "GeoLite2-Country.mmdb"

	// DefaultOutput is a name of the resulting CSV file.
	DefaultOutput = "data.csv"
)

var validFormats = map[string]bool{
	"":                    true,
	geo.FormatMaxmind:     true,
	geo.FormatCSV:         true,
	geo.FormatIP2Location: true,
}

// LogRotation configures rotation of the log file. Sizes are in
// megabytes, age is in days.
type LogRotation struct {
	MaxSize    int `toml:"max_size"`
	MaxBackups int `toml:"max_backups"`
	MaxAge     int `toml:"max_age"`
}

type Config struct {
	Database       string      `toml:"database"`
	DatabaseFormat string      `toml:"database_format"`
	VerifyDatabase bool        `toml:"verify_database"`
	Output         string      `toml:"output"`
	LogFile        string      `toml:"log_file"`
	Debug          bool        `toml:"debug"`
	LogRotation    LogRotation `toml:"log_rotation"`
}

// GetDatabaseFormat returns an explicit database format or guesses it
// by the extension of the database file.
func (c *Config) GetDatabaseFormat() string {
	if c.DatabaseFormat != "" {
		return c.DatabaseFormat
	}

	switch strings.ToLower(filepath.Ext(c.Database)) {
	case ".csv":
		return geo.FormatCSV
	case ".bin":
		return geo.FormatIP2Location
	}

	return geo.FormatMaxmind
}

// Default returns a configuration which is used if no config file is
// given.
func Default() *Config {
	return &Config{
		Database: DefaultDatabase,
		Output:   DefaultOutput,
		LogRotation: LogRotation{
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

func Parse(file io.Reader) (*Config, error) {
	conf := Default()

	buf, err := ioutil.ReadAll(file)
	if err != nil {
		return nil, errors.Annotate(err, "Cannot read config file")
	}

	if _, err := toml.Decode(string(buf), conf); err != nil {
		return nil, errors.Annotate(err, "Cannot parse config file")
	}

	if err = validate(conf); err != nil {
		return nil, errors.Annotate(err, "Invalid value")
	}

	return conf, nil
}

func validate(conf *Config) error {
	if _, ok := validFormats[conf.DatabaseFormat]; !ok {
		return errors.Errorf("Unknown database format %s", conf.DatabaseFormat)
	}

	if conf.Database == "" {
		return errors.New("Database path is empty")
	}

	if conf.Output == "" {
		return errors.New("Output path is empty")
	}

	rotation := conf.LogRotation
	if rotation.MaxSize < 0 || rotation.MaxBackups < 0 || rotation.MaxAge < 0 {
		return errors.Errorf("Incorrect log rotation %+v", rotation)
	}

	return nil
}
