package gtfsimport

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
)

var ErrMissingFile = errors.New("required gtfs file missing")

type Feed struct {
	Agencies      []Agency
	Calendars     []Calendar
	CalendarDates []CalendarDate
	Routes        []Route
	Stops         []Stop
	Trips         []Trip
	StopTimes     []StopTime
	Transfers     []Transfer
}

var requiredFiles = []string{"agency.txt", "routes.txt", "stops.txt", "trips.txt", "stop_times.txt"}

var setupReader sync.Once

func (f *Feed) destinations() map[string]any {
	return map[string]any{
		"agency.txt":         &f.Agencies,
		"calendar.txt":       &f.Calendars,
		"calendar_dates.txt": &f.CalendarDates,
		"routes.txt":         &f.Routes,
		"stops.txt":          &f.Stops,
		"trips.txt":          &f.Trips,
		"stop_times.txt":     &f.StopTimes,
		"transfers.txt":      &f.Transfers,
	}
}

// Open reads a feed from a zip archive or from a directory of extracted text files
func Open(location string) (*Feed, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return ParseFS(os.DirFS(location))
	}

	archive, err := zip.OpenReader(location)
	if err != nil {
		return nil, fmt.Errorf("open gtfs archive: %w", err)
	}
	defer archive.Close()

	return ParseFS(archive)
}

// ParseFS reads every known GTFS file from the root of fsys. Unknown files are ignored.
func ParseFS(fsys fs.FS) (*Feed, error) {
	// Allow us to ignore those naughty records that have missing columns
	setupReader.Do(func() {
		gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
			r := csv.NewReader(in)
			r.FieldsPerRecord = -1
			r.LazyQuotes = true
			return r
		})
	})

	feed := &Feed{}
	present := map[string]bool{}

	for fileName, destination := range feed.destinations() {
		file, err := fsys.Open(fileName)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("file", fileName).Msg("GTFS file not found, skipping")
			continue
		} else if err != nil {
			return nil, fmt.Errorf("open %s: %w", fileName, err)
		}

		log.Info().Str("file", fileName).Msg("Loading file")

		err = gocsv.Unmarshal(skipByteOrderMark(file), destination)
		file.Close()
		if err != nil {
			log.Error().Str("file", fileName).Err(err).Msg("Failed to parse csv file")
			return nil, fmt.Errorf("parse %s: %w", fileName, err)
		}

		present[fileName] = true
	}

	for _, fileName := range requiredFiles {
		if !present[fileName] {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, fileName)
		}
	}

	return feed, nil
}

var byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

func skipByteOrderMark(reader io.Reader) io.Reader {
	buffered := bufio.NewReader(reader)
	if prefix, err := buffered.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		buffered.Discard(len(byteOrderMark))
	}

	return buffered
}
