// Package logging writes the daily rotating output log.
package logging

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	dateLayout = "2006-01-02"
	// DefaultPrefix names the output files <prefix>_<date>.log
	DefaultPrefix = "adsb"
)

// Rotator is an io.Writer appending to one file per day. When the day
// changes the previous file is gzip-compressed in the background.
type Rotator struct {
	logDir string
	prefix string
	useUTC bool
	logger *logrus.Logger
	now    func() time.Time

	mu          sync.Mutex
	currentFile *os.File
	currentDate string
	compressing sync.WaitGroup
}

// NewRotator creates logDir if needed and opens today's file.
func NewRotator(logDir string, useUTC bool, logger *logrus.Logger) (*Rotator, error) {
	return newRotator(logDir, DefaultPrefix, useUTC, logger, time.Now)
}

func newRotator(logDir, prefix string, useUTC bool, logger *logrus.Logger, now func() time.Time) (*Rotator, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	r := &Rotator{
		logDir: logDir,
		prefix: prefix,
		useUTC: useUTC,
		logger: logger,
		now:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.openLocked(r.today()); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}
	return r, nil
}

func (r *Rotator) today() string {
	now := r.now()
	if r.useUTC {
		now = now.UTC()
	}
	return now.Format(dateLayout)
}

func (r *Rotator) path(date string) string {
	return filepath.Join(r.logDir, fmt.Sprintf("%s_%s.log", r.prefix, date))
}

// Start checks for a date change every minute until ctx is done.
func (r *Rotator) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Rotate(); err != nil {
				r.logger.WithError(err).Error("Failed to rotate log file")
			}
		}
	}
}

// Rotate switches to a new file if the date changed since the current one
// was opened.
func (r *Rotator) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotateLocked()
}

func (r *Rotator) rotateLocked() error {
	date := r.today()
	if r.currentFile != nil && date == r.currentDate {
		return nil
	}

	r.logger.WithFields(logrus.Fields{
		"old_date": r.currentDate,
		"new_date": date,
	}).Info("Rotating log file")

	if r.currentFile != nil {
		if err := r.currentFile.Close(); err != nil {
			r.logger.WithError(err).Error("Failed to close old log file")
		}
		r.currentFile = nil

		old := r.currentDate
		r.compressing.Add(1)
		go func() {
			defer r.compressing.Done()
			r.compress(old)
		}()
	}
	return r.openLocked(date)
}

func (r *Rotator) openLocked(date string) error {
	path := r.path(date)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file %s: %w", path, err)
	}
	r.currentFile = file
	r.currentDate = date

	r.logger.WithField("file", path).Info("Opened log file")
	return nil
}

// Write appends p to the current file, rotating first if the day changed.
func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.currentFile == nil {
		return 0, fmt.Errorf("log rotator is closed")
	}
	if err := r.rotateLocked(); err != nil {
		return 0, err
	}
	return r.currentFile.Write(p)
}

// compress gzips the log of date and removes the original
func (r *Rotator) compress(date string) {
	logFile := r.path(date)
	gzipFile := logFile + ".gz"
	log := r.logger.WithFields(logrus.Fields{"source": logFile, "target": gzipFile})

	src, err := os.Open(logFile)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.WithError(err).Error("Failed to open log file for compression")
		return
	}
	defer src.Close()

	dst, err := os.Create(gzipFile)
	if err != nil {
		log.WithError(err).Error("Failed to create compressed file")
		return
	}

	gz := gzip.NewWriter(dst)
	gz.Name = filepath.Base(logFile)
	gz.ModTime = r.now()

	_, err = io.Copy(gz, src)
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.WithError(err).Error("Failed to compress log file")
		os.Remove(gzipFile)
		return
	}

	if err := os.Remove(logFile); err != nil {
		log.WithError(err).Error("Failed to remove compressed log file")
		return
	}
	log.Info("Log file compressed")
}

// Close closes the current file and waits for pending compressions.
func (r *Rotator) Close() error {
	r.mu.Lock()
	var err error
	if r.currentFile != nil {
		err = r.currentFile.Close()
		r.currentFile = nil
	}
	r.mu.Unlock()

	r.compressing.Wait()
	return err
}

// CurrentFile returns the path of the file being written
func (r *Rotator) CurrentFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path(r.currentDate)
}

// Files lists every output log, compressed or not
func (r *Rotator) Files() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(r.logDir, r.prefix+"_*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}

// CleanupOldLogs removes logs last modified more than maxDays ago. It
// returns the number of files removed.
func (r *Rotator) CleanupOldLogs(maxDays int) (int, error) {
	if maxDays <= 0 {
		return 0, fmt.Errorf("maxDays must be positive")
	}

	files, err := r.Files()
	if err != nil {
		return 0, err
	}

	cutoff := r.now().AddDate(0, 0, -maxDays)
	current := r.CurrentFile()
	removed := 0
	for _, file := range files {
		if file == current {
			continue
		}
		info, err := os.Stat(file)
		if err != nil {
			r.logger.WithError(err).WithField("file", file).Warn("Failed to stat log file")
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(file); err != nil {
			r.logger.WithError(err).WithField("file", file).Error("Failed to remove old log file")
			continue
		}
		removed++
	}

	r.logger.WithField("count", removed).Info("Cleaned up old log files")
	return removed, nil
}
