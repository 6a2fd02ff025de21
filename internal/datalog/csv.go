// Package datalog appends finished readings to a CSV file for later analysis.
package datalog

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/relabs-tech/airq_monitor/internal/airquality"
	"github.com/relabs-tech/airq_monitor/internal/env"
)

var columns = []string{
	"timestamp",
	"temperature_c",
	"humidity_rh",
	"pressure_hpa",
	"gas_resistance_ohms",
	"air_quality_index",
	"air_quality_label",
}

// Writer appends one CSV row per reading. Not safe for concurrent use;
// the monitor loop is the single writer.
type Writer struct {
	filename string
	flush    bool

	file *os.File
	w    *csv.Writer
}

// NewWriter opens (or creates) the CSV file, writing the header when the
// file is new or empty.
func NewWriter(filename string, flushImmediately bool) (*Writer, error) {
	w := &Writer{filename: filename, flush: flushImmediately}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) open() error {
	needHeader := true
	if st, err := os.Stat(w.filename); err == nil && st.Size() > 0 {
		needHeader = false
	}

	f, err := os.OpenFile(w.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file %s: %w", w.filename, err)
	}
	w.file = f
	w.w = csv.NewWriter(f)

	if needHeader {
		if err := w.w.Write(columns); err != nil {
			f.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
		w.w.Flush()
		if err := w.w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("flush csv header: %w", err)
		}
		log.Printf("datalog: created %s with header", w.filename)
	}
	return nil
}

// Append writes one reading row. During calibration the gas column may be
// empty (heater not yet stable for the whole cycle).
func (w *Writer) Append(s env.Sample, v airquality.Verdict) error {
	row := []string{
		s.Timestamp.Format("2006-01-02 15:04:05"),
		strconv.FormatFloat(s.Temperature, 'f', 2, 64),
		strconv.FormatFloat(s.Humidity, 'f', 2, 64),
		strconv.FormatFloat(s.Pressure, 'f', 2, 64),
		strconv.FormatFloat(s.GasResistance, 'f', 2, 64),
		strconv.Itoa(int(v.Index)),
		v.Label,
	}
	if err := w.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	if w.flush {
		w.w.Flush()
		if err := w.w.Error(); err != nil {
			return fmt.Errorf("flush csv row: %w", err)
		}
	}
	return nil
}

// SizeMB returns the current file size in megabytes.
func (w *Writer) SizeMB() float64 {
	st, err := os.Stat(w.filename)
	if err != nil {
		return 0
	}
	return float64(st.Size()) / (1024 * 1024)
}

// RotateIfNeeded moves the file aside once it exceeds maxSizeMB and starts
// a fresh one with a header. Reports whether a rotation happened.
func (w *Writer) RotateIfNeeded(maxSizeMB float64) (bool, error) {
	if maxSizeMB <= 0 || w.SizeMB() <= maxSizeMB {
		return false, nil
	}

	w.w.Flush()
	if err := w.file.Close(); err != nil {
		return false, fmt.Errorf("close csv before rotation: %w", err)
	}

	backup := fmt.Sprintf("%s.%s.backup", w.filename, time.Now().Format("20060102_150405"))
	if err := os.Rename(w.filename, backup); err != nil {
		return false, fmt.Errorf("rotate csv file: %w", err)
	}
	log.Printf("datalog: rotated %s to %s", w.filename, backup)

	if err := w.open(); err != nil {
		return false, err
	}
	return true, nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
