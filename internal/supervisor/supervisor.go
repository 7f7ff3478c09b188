// Package supervisor owns the background stages of a pipeline run: it
// starts the queue monitor, stats monitor, splitter, mapper, and N
// workers, then loops replacing any worker that has died, until kill is
// set.
package supervisor

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fxlv/trireme/internal/metrics"
	"github.com/fxlv/trireme/internal/pipeline"
	"github.com/fxlv/trireme/internal/progress"
	"github.com/fxlv/trireme/internal/queuemonitor"
	"github.com/fxlv/trireme/internal/stats"
	"github.com/fxlv/trireme/internal/worker"
	"github.com/schollz/progressbar/v3"
)

// workerPollInterval is how often the supervisor scans for dead workers
// and spawns replacements.
const workerPollInterval = 1 * time.Second

// Config is everything a Supervisor needs to run one pipeline instance.
// Queues and Settings are also handed to the action driver that produced
// this Config's caller, so the driver and the supervisor cooperate over
// the same channels.
type Config struct {
	Settings *pipeline.Settings
	Queues   *pipeline.Queues

	WorkerOptions worker.Options

	// Metrics, when non-nil, has its workersActive gauge kept current.
	// MetricsPort > 0 additionally starts the /metrics HTTP server.
	Metrics     *metrics.Collector
	MetricsPort int

	// ProgressWriter, StatsOut, and Bar configure the stats monitor's
	// optional outputs; all may be nil.
	ProgressWriter *progress.Writer
	StatsOut       io.Writer
	Bar            *progressbar.ProgressBar
}

// Supervisor owns the background stages of one pipeline run: the
// monitors, the splitter, the mapper, and the worker pool.
type Supervisor struct {
	cfg  Config
	pool *worker.Pool

	wg         sync.WaitGroup
	metricsSrv *http.Server
}

// New builds a Supervisor for cfg. Call Start to launch the background
// stages, then drive the pipeline's mapper/resultsQ side from an action
// driver, then call Wait once the driver has set kill.
func New(cfg Config) *Supervisor {
	return &Supervisor{cfg: cfg}
}

// Start launches (in order) the queue monitor, stats monitor, splitter,
// mapper, N workers, the optional metrics server, and the worker-
// liveness loop. It does not block.
func (s *Supervisor) Start() {
	q := s.cfg.Queues

	go queuemonitor.Run(q)
	go stats.RunMonitor(q, s.cfg.Settings, stats.Options{
		Out:            s.cfg.StatsOut,
		ProgressWriter: s.cfg.ProgressWriter,
		Bar:            s.cfg.Bar,
	})
	go pipeline.RunSplitter(q, s.cfg.Settings, s.cfg.Metrics)
	go pipeline.RunMapper(q, q.Kill)

	s.pool = worker.NewPool(s.cfg.WorkerOptions)
	s.pool.Start(s.cfg.Settings.Workers)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.SetWorkersActive(s.pool.Count())
	}

	if s.cfg.MetricsPort > 0 {
		s.metricsSrv = metrics.NewServer(s.cfg.MetricsPort)
		go func() {
			if err := s.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("supervisor: metrics server exited", "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go s.watchWorkers()
}

// watchWorkers is the supervisor's core loop: poll kill, and between
// polls replace any worker whose goroutine has exited.
func (s *Supervisor) watchWorkers() {
	defer s.wg.Done()

	ticker := time.NewTicker(workerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.cfg.Queues.Kill.Done():
			return
		case <-ticker.C:
			if n := s.pool.ReplaceDead(); n > 0 {
				slog.Info("supervisor: replaced dead workers", "count", n)
			}
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.SetWorkersActive(s.pool.Count())
			}
		}
	}
}

// Wait blocks until kill has been set (normally by an action driver
// once it observes the results sentinel) and both the worker-liveness
// loop and every tracked worker have exited. The monitor, splitter and
// mapper goroutines are not waited on. If a metrics server was started,
// it is then shut down gracefully.
func (s *Supervisor) Wait() {
	<-s.cfg.Queues.Kill.Done()
	s.wg.Wait()
	s.pool.Wait()

	if s.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.metricsSrv.Shutdown(ctx); err != nil {
			slog.Warn("supervisor: metrics server shutdown error", "error", err)
		}
	}
}
