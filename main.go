package main

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/viaorg/viaorg/analysis"
	"github.com/viaorg/viaorg/config"
	"github.com/viaorg/viaorg/geo"
	"github.com/viaorg/viaorg/scan"
)

const version = "0.1.0"

var (
	app = kingpin.New(
		"viaorg",
		"Count countries of clients which come through Internet.org proxy")

	debug = app.Flag("debug", "Run in debug mode.").
		Short('d').
		Envar("VIAORG_DEBUG").
		Bool()
	configFile = app.Flag("config", "Path to the config.").
			Short('c').
			Envar("VIAORG_CONFIG").
			String()
	database = app.Flag("database", "Path to the GeoIP database.").
			Envar("VIAORG_DATABASE").
			String()
	databaseFormat = app.Flag("database-format", "Format of the GeoIP database.").
			Enum(geo.FormatMaxmind, geo.FormatCSV, geo.FormatIP2Location)
	verifyDatabase = app.Flag("verify-database", "Verify a structure of MaxMind database.").
			Bool()
	output = app.Flag("output", "Path to the resulting CSV file.").
		Short('o').
		Envar("VIAORG_OUTPUT").
		String()
	logFile = app.Flag("log-file", "Path to the log file.").
		String()
	input = app.Arg("input", "PDML export or packet capture to analyze.").
		Required().
		String()
)

func init() {
	app.Version(version)
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	conf, err := makeConfig()
	if err != nil {
		log.Fatal(err.Error())
	}

	os.Exit(run(afero.NewOsFs(), conf, *input, os.Stdout))
}

// run executes the analysis and returns an exit code. Log file is
// closed before return.
func run(fs afero.Fs, conf *config.Config, inputPath string, stdout io.Writer) int {
	if writer := setupLogger(conf); writer != nil {
		defer writer.Close()
	}

	rv, err := analysis.Run(fs, analysis.Options{
		Input:  inputPath,
		Output: conf.Output,
		Open:   geo.NewOpener(fs, conf.Database, conf.GetDatabaseFormat(), conf.VerifyDatabase),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"input":    inputPath,
			"database": conf.Database,
			"output":   conf.Output,
		}).Error(err.Error())

		return 1
	}

	fmt.Fprintf(stdout, "\nDone! %d countries are written to %s\n", len(rv.Rows), conf.Output)
	fmt.Fprintf(stdout, "\n%d unique addresses from %d proxied packets, %d of them are not known.\n",
		rv.Unique, rv.Statuses[scan.StatusMatched], rv.Lookups.Unknown)

	return 0
}

func makeConfig() (*config.Config, error) {
	conf := config.Default()

	if *configFile != "" {
		file, err := os.Open(*configFile)
		if err != nil {
			return nil, errors.Annotate(err, "Cannot open config file")
		}
		defer file.Close()

		if conf, err = config.Parse(file); err != nil {
			return nil, errors.Annotatef(err, "Cannot use config %s", *configFile)
		}
	}

	if *database != "" {
		conf.Database = *database
	}

	if *databaseFormat != "" {
		conf.DatabaseFormat = *databaseFormat
	}

	if *output != "" {
		conf.Output = *output
	}

	if *logFile != "" {
		conf.LogFile = *logFile
	}

	conf.Debug = conf.Debug || *debug
	conf.VerifyDatabase = conf.VerifyDatabase || *verifyDatabase

	return conf, nil
}
