package registry

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"adsbtrack/internal/adsb"
)

// DefaultCacheTTL is how long lookup results are kept
const DefaultCacheTTL = 10 * time.Minute

const (
	fieldAddress = iota
	fieldRegistration
	fieldTypeDesignator
	fieldModel
	fieldDescription
	fieldWakeTurbulence
	fieldCount
)

type cacheEntry struct {
	aircraft Aircraft
	found    bool
}

// Database reads aircraft records from a zip archive holding one sorted CSV
// file per last address byte, named after its two hex digits (e.g. D6.csv).
type Database struct {
	archive *zip.ReadCloser
	cache   *cache.Cache
	logger  *logrus.Logger
}

// Open opens the archive at path. Lookups are cached for ttl.
func Open(path string, ttl time.Duration, logger *logrus.Logger) (*Database, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open aircraft registry: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	logger.WithFields(logrus.Fields{
		"path":  path,
		"files": len(archive.File),
	}).Info("Aircraft registry opened")

	return &Database{
		archive: archive,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}, nil
}

// Close releases the archive
func (d *Database) Close() error {
	return d.archive.Close()
}

// Lookup returns the record for addr. A missing record is not an error: it
// yields Unknown and false.
func (d *Database) Lookup(addr adsb.IcaoAddress) (Aircraft, bool, error) {
	key := addr.String()
	if cached, ok := d.cache.Get(key); ok {
		entry := cached.(cacheEntry)
		return entry.aircraft, entry.found, nil
	}

	aircraft, found, err := d.find(key)
	if err != nil {
		return Unknown, false, err
	}
	d.cache.SetDefault(key, cacheEntry{aircraft: aircraft, found: found})
	return aircraft, found, nil
}

func (d *Database) find(key string) (Aircraft, bool, error) {
	f, err := d.archive.Open(key[4:] + ".csv")
	if errors.Is(err, fs.ErrNotExist) {
		return Unknown, false, nil
	}
	if err != nil {
		return Unknown, false, fmt.Errorf("failed to open registry entry for %s: %w", key, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fieldCount
	r.LazyQuotes = true
	r.ReuseRecord = true

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return Unknown, false, nil
		}
		if err != nil {
			return Unknown, false, fmt.Errorf("failed to read registry entry for %s: %w", key, err)
		}

		// records are sorted by address
		switch {
		case record[fieldAddress] < key:
			continue
		case record[fieldAddress] > key:
			return Unknown, false, nil
		}

		aircraft, err := NewAircraft(
			record[fieldRegistration],
			record[fieldTypeDesignator],
			record[fieldModel],
			record[fieldDescription],
			ParseWakeTurbulenceCategory(record[fieldWakeTurbulence]),
		)
		if err != nil {
			d.logger.WithError(err).WithField("icao", key).Warn("Ignoring invalid registry record")
			return Unknown, false, nil
		}
		return aircraft, true, nil
	}
}
