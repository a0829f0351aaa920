package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"altitude-fusion/geo"
	"altitude-fusion/models"
	"altitude-fusion/utils"
)

// ReplaySample is one row of a flight log, with both altitudes referenced to
// the first usable row.
type ReplaySample struct {
	Pressure     float64 // Pa
	BaroAltitude float64 // m
	GPSAltitude  float64 // m
}

// ParseFlightLog reads pressure and GPS altitude columns from a delimited
// flight log. Rows that are too short or do not parse are skipped and counted.
func ParseFlightLog(r io.Reader, cfg utils.ReplayConfig) ([]ReplaySample, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	if cfg.Delimiter != "" {
		d, _ := utf8.DecodeRuneInString(cfg.Delimiter)
		cr.Comma = d
	}

	need := max(cfg.PressureColumn, cfg.AltitudeColumn)
	if cfg.PressureColumn < 0 || cfg.AltitudeColumn < 0 {
		return nil, 0, errors.Errorf("replay: negative column index (pressure=%d altitude=%d)",
			cfg.PressureColumn, cfg.AltitudeColumn)
	}

	var (
		samples           []ReplaySample
		skipped           int
		baseBaro, baseGPS float64
		haveBase          bool
	)
	isHeader := cfg.HasHeader
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, errors.Wrap(err, "replay: read flight log")
		}
		if isHeader {
			isHeader = false
			continue
		}
		if len(row) <= need {
			skipped++
			continue
		}
		press, pErr := strconv.ParseFloat(row[cfg.PressureColumn], 64)
		alt, aErr := strconv.ParseFloat(row[cfg.AltitudeColumn], 64)
		if pErr != nil || aErr != nil || press <= 0 {
			skipped++
			continue
		}

		baro := geo.BaroAltitude(press)
		if !haveBase {
			baseBaro, baseGPS, haveBase = baro, alt, true
		}
		samples = append(samples, ReplaySample{
			Pressure:     press,
			BaroAltitude: baro - baseBaro,
			GPSAltitude:  alt - baseGPS,
		})
	}
	return samples, skipped, nil
}

// ReplayReader plays a recorded flight log back onto GPS and barometer
// channels at a fixed rate, then closes them.
type ReplayReader struct {
	cfg      utils.ReplayConfig
	samples  []ReplaySample
	GPSOut   chan *models.GPSData
	BaroOut  chan *models.BaroData
	done     chan struct{}
	produced uint64
	dropped  uint64
}

// NewReplayReader loads the whole log up front.
func NewReplayReader(cfg utils.ReplayConfig) (*ReplayReader, error) {
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "replay: open flight log")
	}
	defer f.Close()

	samples, skipped, err := ParseFlightLog(f, cfg)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, errors.Errorf("replay: %s has no usable rows (%d skipped)", cfg.Path, skipped)
	}
	if skipped > 0 {
		utils.L().Warn("replay: skipped %d malformed rows in %s", skipped, cfg.Path)
	}
	return newReplayReader(cfg, samples), nil
}

func newReplayReader(cfg utils.ReplayConfig, samples []ReplaySample) *ReplayReader {
	if cfg.RateHz <= 0 {
		cfg.RateHz = 400
	}
	return &ReplayReader{
		cfg:     cfg,
		samples: samples,
		GPSOut:  make(chan *models.GPSData, 64),
		BaroOut: make(chan *models.BaroData, 64),
		done:    make(chan struct{}),
	}
}

func (r *ReplayReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("replay reader started  (rows=%d, rate=%dHz, file=%s)",
		len(r.samples), r.cfg.RateHz, r.cfg.Path)
}

// Done is closed once every sample has been played or the context ends.
func (r *ReplayReader) Done() <-chan struct{} {
	return r.done
}

func (r *ReplayReader) run(ctx context.Context) {
	defer close(r.done)
	defer close(r.BaroOut)
	defer close(r.GPSOut)

	ticker := time.NewTicker(time.Second / time.Duration(r.cfg.RateHz))
	defer ticker.Stop()

	for i := 0; i < len(r.samples); {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := r.samples[i]
			i++
			ts := utils.NowNano()

			r.emit(&models.GPSData{TimestampNs: ts, Altitude: s.GPSAltitude, FixQuality: 1},
				&models.BaroData{TimestampNs: ts, Pressure: s.Pressure, Altitude: s.BaroAltitude})
		}
	}
	utils.L().Info("replay reader finished (produced=%d, dropped=%d)",
		atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped))
}

// emit sends one log row to both channels. A row counts as produced only when
// both samples were delivered.
func (r *ReplayReader) emit(g *models.GPSData, b *models.BaroData) {
	sent := 0
	select {
	case r.GPSOut <- g:
		sent++
	default:
	}
	select {
	case r.BaroOut <- b:
		sent++
	default:
	}
	if sent == 2 {
		atomic.AddUint64(&r.produced, 1)
	} else {
		atomic.AddUint64(&r.dropped, 1)
	}
}

func (r *ReplayReader) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped)
}
