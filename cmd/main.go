package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"altitude-fusion/controller"
	"altitude-fusion/utils"
)

func main() {
	// ── CLI flags ────────────────────────────────────────────────────
	sensorsPath := flag.String("sensors", "config/sensors.yaml", "path to sensors.yaml")
	filterPath := flag.String("filter", "config/filter.yaml", "path to filter.yaml")
	storagePath := flag.String("storage", "config/storage.yaml", "path to storage.yaml")
	logFile := flag.String("log", "", "optional log file path (stdout is always included)")
	logLevel := flag.String("log-level", "info", "minimum log level (debug, info, warn, error)")
	alignMs := flag.Int("align-ms", 0, "filter step interval in milliseconds (overrides filter.align_ms)")
	flag.Parse()

	// ── Logger ───────────────────────────────────────────────────────
	level, err := utils.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := utils.InitLogger(level, *logFile)
	defer logger.Close()

	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  Altitude-Fusion  ·  GPS + barometer Kalman filter")
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d", runtime.GOMAXPROCS(0), os.Getpid())
	utils.L().Info("═══════════════════════════════════════════════════")

	// ── Load configs ─────────────────────────────────────────────────
	sensorsCfg, err := utils.LoadSensorsConfig(*sensorsPath)
	if err != nil {
		utils.L().Fatal("load sensors config: %v", err)
	}
	filterCfg, err := utils.LoadFilterConfig(*filterPath)
	if err != nil {
		utils.L().Fatal("load filter config: %v", err)
	}
	storageCfg, err := utils.LoadStorageConfig(*storagePath)
	if err != nil {
		utils.L().Fatal("load storage config: %v", err)
	}

	if *alignMs > 0 {
		filterCfg.Filter.AlignMs = *alignMs
	}
	filterCfg.ApplySensors(sensorsCfg)

	// Resolve relative base_dir to absolute.
	if !filepath.IsAbs(storageCfg.Storage.BaseDir) {
		abs, _ := filepath.Abs(storageCfg.Storage.BaseDir)
		storageCfg.Storage.BaseDir = abs
	}

	// ── Context with OS signal cancellation ──────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	duration := sensorsCfg.Simulation.DurationSeconds
	if duration > 0 && !sensorsCfg.Replay.Enabled {
		var timerCancel context.CancelFunc
		ctx, timerCancel = context.WithTimeout(ctx, time.Duration(duration)*time.Second)
		defer timerCancel()
		utils.L().Info("simulation will auto-stop after %ds", duration)
	}

	// ── Pipeline assembly ────────────────────────────────────────────
	//
	//  GPS / baro / replay goroutines ──► buffered channels ──► FusionController
	//                                                                │
	//                                                      AltitudeEstimate chan
	//                                                                │
	//                                                      RecordingController
	//                                                                │
	//                                             estimates.csv, gps.csv, baro.csv

	// 1. Sensors
	sensorCtrl, err := controller.NewSensorsController(sensorsCfg)
	if err != nil {
		utils.L().Fatal("init sensors controller: %v", err)
	}
	sensorCtrl.Start(ctx)

	// 2. Fusion
	fusionCtrl := controller.NewFusionController(filterCfg.Filter.Config, filterCfg.Filter.AlignMs)
	fusionCtrl.Start(ctx, sensorCtrl)

	// 3. Recording
	recordCtrl, err := controller.NewRecordingController(storageCfg)
	if err != nil {
		utils.L().Fatal("init recording controller: %v", err)
	}
	recordCtrl.Start(ctx, fusionCtrl.Out)

	utils.L().Info("pipeline running, press Ctrl+C to stop")

	// ── Stats ticker ─────────────────────────────────────────────────
	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	// ── Main event loop ──────────────────────────────────────────────
	replayDone := sensorCtrl.Done() // nil unless replaying
	for {
		select {
		case sig := <-sigCh:
			utils.L().Info("received signal: %v, shutting down", sig)
			goto shutdown

		case <-replayDone:
			utils.L().Info("flight log exhausted, shutting down")
			goto shutdown

		case <-ctx.Done():
			goto shutdown

		case <-statsTicker.C:
			utils.L().Info("── stats ─────────────────────────")
			sensorCtrl.LogStats()
			fusionCtrl.LogStats()
			utils.L().Info("  estimate rows written: %d", recordCtrl.RowsWritten())
			utils.L().Info("──────────────────────────────────")
		}
	}

shutdown:
	// Give the fusion stage a few ticks to consume in-flight samples.
	utils.L().Info("draining pipeline…")
	time.Sleep(500 * time.Millisecond)
	cancel()

	recordCtrl.Stop()

	sensorCtrl.LogStats()
	fusionCtrl.LogStats()
	utils.L().Info("session saved to: %s", recordCtrl.SessionDir())
	utils.L().Info("total estimate rows: %d", recordCtrl.RowsWritten())

	fmt.Println("\n✓ Altitude-Fusion finished. Estimates at:", recordCtrl.SessionDir())
}
