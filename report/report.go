package report

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"github.com/juju/errors"
	"github.com/spf13/afero"
)

// Row is a single line of the resulting table.
type Row struct {
	Country string
	Count   int
}

// Count returns a number of occurrences for each country.
func Count(countries []string) map[string]int {
	rv := make(map[string]int, len(countries))

	for _, v := range countries {
		rv[v]++
	}

	return rv
}

// Sort orders rows by count and then by country name, both
// descending: {A: 2, B: 3, C: 2} gives B, C, A.
func Sort(counts map[string]int) []Row {
	rv := make([]Row, 0, len(counts))

	for country, count := range counts {
		rv = append(rv, Row{Country: country, Count: count})
	}

	sort.Slice(rv, func(i, j int) bool {
		if rv[i].Count != rv[j].Count {
			return rv[i].Count > rv[j].Count
		}

		return rv[i].Country > rv[j].Country
	})

	return rv
}

// Write dumps rows as CSV without a header. Lines are terminated with
// CRLF.
func Write(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true

	for _, row := range rows {
		if err := writer.Write([]string{row.Country, strconv.Itoa(row.Count)}); err != nil {
			return errors.Annotatef(err, "Cannot write row for %s", row.Country)
		}
	}

	writer.Flush()

	return errors.Annotate(writer.Error(), "Cannot flush rows")
}

// WriteFile truncates or creates a file and writes rows into it.
func WriteFile(fs afero.Fs, path string, rows []Row) error {
	file, err := fs.Create(path)
	if err != nil {
		return errors.Annotatef(err, "Cannot create file %s", path)
	}

	if err := Write(file, rows); err != nil {
		file.Close()

		return errors.Annotatef(err, "Cannot write to %s", path)
	}

	return errors.Annotatef(file.Close(), "Cannot close %s", path)
}
