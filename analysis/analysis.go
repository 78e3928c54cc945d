// Package analysis wires the whole pipeline: load a capture, extract
// addresses of clients behind Internet.org proxy, resolve them into
// countries and dump a frequency table.
//
// The pipeline is strictly linear. Broken packets and unresolvable
// addresses are tolerated, everything else aborts the run.
package analysis

import (
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/viaorg/viaorg/capture"
	"github.com/viaorg/viaorg/geo"
	"github.com/viaorg/viaorg/report"
	"github.com/viaorg/viaorg/scan"
)

// Options defines the paths of a run. Open is called once, after the
// capture is scanned.
type Options struct {
	Input  string
	Output string
	Open   geo.Opener
}

// Report summarizes a successful run. Rows are exactly what is written
// into the output file.
type Report struct {
	Packets   int
	Statuses  map[scan.Status]int
	Addresses int
	Unique    int
	Lookups   geo.Stats
	Rows      []report.Row
}

// Run loads a capture, resolves addresses of proxied clients and
// writes a CSV with countries into opts.Output. Output is not touched
// if any step before writing fails.
func Run(fs afero.Fs, opts Options) (*Report, error) {
	doc, err := capture.Load(fs, opts.Input)
	if err != nil {
		return nil, errors.Annotate(err, "Cannot load capture")
	}

	summary := scan.Document(doc)
	unique := scan.Unique(summary.Addresses)

	rv := &Report{
		Packets:   summary.Packets,
		Statuses:  summary.Statuses,
		Addresses: len(summary.Addresses),
		Unique:    len(unique),
	}

	log.WithFields(log.Fields{
		"packets":     summary.Packets,
		"matched":     summary.Statuses[scan.StatusMatched],
		"not_http":    summary.Statuses[scan.StatusNotHTTP],
		"not_proxied": summary.Statuses[scan.StatusNotProxied],
		"malformed":   summary.Statuses[scan.StatusMalformed],
		"addresses":   len(summary.Addresses),
		"unique":      len(unique),
	}).Info("Capture is scanned.")

	var countries []string

	err = geo.WithSession(opts.Open, func(session geo.Session) error {
		countries, rv.Lookups = geo.Resolve(session, unique)

		return nil
	})
	if err != nil {
		return nil, errors.Annotate(err, "Cannot resolve addresses")
	}

	log.WithFields(log.Fields{
		"resolved": rv.Lookups.Resolved,
		"unknown":  rv.Lookups.Unknown,
	}).Info("Addresses are resolved.")

	rv.Rows = report.Sort(report.Count(countries))

	if err := report.WriteFile(fs, opts.Output, rv.Rows); err != nil {
		return nil, errors.Annotate(err, "Cannot write report")
	}

	return rv, nil
}
