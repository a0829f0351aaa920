package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"altitude-fusion/models"
	"altitude-fusion/utils"
	"altitude-fusion/views"
)

// RecordingController is the final pipeline stage.
// It reads AltitudeEstimates and writes them to:
//   - estimates.csv (filter output, one row per alignment tick)
//   - gps.csv and baro.csv (the raw samples each estimate consumed)
//
// Writing is asynchronous with periodic flush, so the fusion stage never
// waits on disk.
type RecordingController struct {
	storageCfg *utils.StorageConfig
	sessionDir string

	estimateWriter *views.CSVWriter
	gpsWriter      *views.CSVWriter
	baroWriter     *views.CSVWriter

	rowsWritten uint64
	wg          sync.WaitGroup
}

// NewRecordingController sets up the session directory and CSV writers.
func NewRecordingController(storageCfg *utils.StorageConfig) (*RecordingController, error) {
	sess := utils.SessionName(storageCfg.Storage.SessionPrefix)
	sessionDir := filepath.Join(storageCfg.Storage.BaseDir, sess)

	if !storageCfg.Storage.Overwrite {
		if _, err := os.Stat(sessionDir); err == nil {
			return nil, fmt.Errorf("session dir %s already exists (overwrite=false)", sessionDir)
		}
	}

	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	csvCfg := storageCfg.Storage.CSV
	bufSize := csvCfg.BufferSizeKB * 1024

	rc := &RecordingController{
		storageCfg: storageCfg,
		sessionDir: sessionDir,
	}

	files := []struct {
		dst    **views.CSVWriter
		name   string
		schema views.SensorType
		header []string
	}{
		{&rc.estimateWriter, "estimates.csv", views.SensorEstimate, models.AltitudeEstimate{}.CSVHeader()},
		{&rc.gpsWriter, "gps.csv", views.SensorGPS, models.GPSData{}.CSVHeader()},
		{&rc.baroWriter, "baro.csv", views.SensorBaro, models.BaroData{}.CSVHeader()},
	}
	for _, f := range files {
		if err := views.ValidateHeader(f.schema, f.header); err != nil {
			rc.closeAll()
			return nil, err
		}
		w, err := views.NewCSVWriter(filepath.Join(sessionDir, f.name), bufSize, csvCfg.WriteHeader, f.header)
		if err != nil {
			rc.closeAll()
			return nil, err
		}
		*f.dst = w
	}

	utils.L().Info("recording controller ready  session=%s", sessionDir)
	return rc, nil
}

// Start begins consuming estimates and writing CSVs.
// It also starts a periodic flush goroutine.
func (rc *RecordingController) Start(ctx context.Context, estimates <-chan *models.AltitudeEstimate) {
	// Periodic flusher
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		flushMs := rc.storageCfg.Storage.CSV.FlushIntervalMs
		if flushMs <= 0 {
			flushMs = 100
		}
		ticker := time.NewTicker(time.Duration(flushMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				rc.flushAll()
				return
			case <-ticker.C:
				rc.flushAll()
			}
		}
	}()

	// Main writer goroutine. It drains until the fusion stage closes the
	// channel so estimates emitted just before shutdown are kept.
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		for est := range estimates {
			rc.writeRecord(est)
		}
	}()

	utils.L().Info("recording controller started")
}

// writeRecord fans one estimate out to the estimate CSV and per-sensor CSVs.
func (rc *RecordingController) writeRecord(est *models.AltitudeEstimate) {
	rc.estimateWriter.WriteRow(est.CSVRow())

	if est.GPS != nil {
		rc.gpsWriter.WriteRow(est.GPS.CSVRow())
	}
	for _, b := range est.BaroSamples {
		rc.baroWriter.WriteRow(b.CSVRow())
	}

	atomic.AddUint64(&rc.rowsWritten, 1)
}

func (rc *RecordingController) writers() []*views.CSVWriter {
	return []*views.CSVWriter{rc.estimateWriter, rc.gpsWriter, rc.baroWriter}
}

func (rc *RecordingController) flushAll() {
	for _, w := range rc.writers() {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil {
			utils.L().Error("flush %s: %v", w.Path(), err)
		}
	}
}

func (rc *RecordingController) closeAll() {
	for _, w := range rc.writers() {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil {
			utils.L().Error("close %s: %v", w.Path(), err)
		}
	}
}

// Stop waits for the writer goroutines, then flushes and closes every CSV.
// The context passed to Start must be cancelled first.
func (rc *RecordingController) Stop() {
	rc.wg.Wait()
	rc.closeAll()

	rows := atomic.LoadUint64(&rc.rowsWritten)
	utils.L().Info("recording controller stopped  (rows_written=%d, session=%s)", rows, rc.sessionDir)
}

// SessionDir returns the path to the active session directory.
func (rc *RecordingController) SessionDir() string {
	return rc.sessionDir
}

// RowsWritten returns the total number of estimate rows persisted.
func (rc *RecordingController) RowsWritten() uint64 {
	return atomic.LoadUint64(&rc.rowsWritten)
}
