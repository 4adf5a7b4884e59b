// Package influx writes per-tick playback metrics to InfluxDB, falling back
// to a gzipped line-protocol file when the server is unreachable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/tmdojo/viewer/internal/config"
)

// MeasurementTick is the measurement name of per-tick points.
const MeasurementTick = "playback_tick"

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Tick is what a playback tick reports.
type Tick struct {
	SessionID  string
	Frame      uint64
	RaceTimeMs float64
	DeltaMs    float64
	Traces     int
	Duration   time.Duration
	Paused     bool
	At         time.Time
}

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	cfg        config.InfluxConfig
	backupPath string
	logger     *slog.Logger

	client       influxdb2.Client
	writer       influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	valid        bool

	mu sync.Mutex
}

// NewManager creates a new InfluxDB manager. backupPath receives gzipped line
// protocol when the server cannot be reached.
func NewManager(cfg config.InfluxConfig, backupPath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:        cfg,
		backupPath: backupPath,
		logger:     logger.With("component", "influx"),
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer a ping, points are written to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.client.Ping(ctx)
	m.valid = err == nil && running

	if !m.valid {
		if m.backupPath == "" {
			return fmt.Errorf("influx unreachable and no backup path: %w", err)
		}
		if m.backupWriter == nil {
			m.logger.Info("Failed to initialize InfluxDB client, writing to backup file", "backupPath", m.backupPath)

			file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.backupWriter = gzip.NewWriter(file)
		}
		m.logger.Warn("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.logger.Info("InfluxDB client initialized", "bucket", m.cfg.Bucket)
	return nil
}

// Valid reports whether points go to a live server.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	_, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.logger.Info("Organization not found, creating", "org", orgName)
		_, err = m.client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.logger.Error("Error creating organization", "org", orgName, "error", err)
			return err
		}
	}

	influxOrg, err := m.client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.logger.Error("Error getting organization", "org", orgName, "error", err)
		return err
	}

	// ensure the bucket exists with 90 day retention
	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.logger.Info("Bucket not found, creating", "bucket", m.cfg.Bucket)

		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.logger.Error("Error creating bucket", "bucket", m.cfg.Bucket, "error", err)
			return err
		}
	}

	return nil
}

func (m *Manager) createWriter() {
	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	errorsCh := m.writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.logger.Error("Error sending data to InfluxDB", "bucket", m.cfg.Bucket, "error", writeErr)
		}
	}()
}

// TickPoint builds the point recorded for one tick.
func TickPoint(t Tick) *influxdb2_write.Point {
	at := t.At
	if at.IsZero() {
		at = time.Now()
	}
	p := influxdb2_write.NewPointWithMeasurement(MeasurementTick).
		AddTag("session", t.SessionID).
		AddField("frame", int64(t.Frame)).
		AddField("race_time_ms", t.RaceTimeMs).
		AddField("delta_ms", t.DeltaMs).
		AddField("traces", t.Traces).
		AddField("tick_us", t.Duration.Microseconds()).
		AddField("paused", t.Paused).
		SetTime(at)
	return p
}

// WriteTick records one tick.
func (m *Manager) WriteTick(t Tick) error {
	return m.WritePoint(TickPoint(t))
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		errs = append(errs, m.backupFile.Close())
		m.backupWriter = nil
	}
	m.valid = false
	return errors.Join(errs...)
}
