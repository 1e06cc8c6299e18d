package services

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/cinerec/cinerec/internal/factors"
	"github.com/cinerec/cinerec/internal/ledger"
	"github.com/cinerec/cinerec/pkg/models"
)

// HealthService reports readiness and feeds the Prometheus gauges. The
// model being loaded is the critical condition: without it the serving
// endpoints answer 503, so health degrades to "unhealthy". Redis is a
// cache and only degrades the status.
type HealthService struct {
	store  *factors.Store
	ledger ledger.Store
	cache  *redis.Client
	logger *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
	modelMetrics      *prometheus.GaugeVec
	ledgerMetrics     *prometheus.GaugeVec
	systemMetrics     *prometheus.GaugeVec
}

func NewHealthService(store *factors.Store, ratings ledger.Store, cache *redis.Client, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		store:  store,
		ledger: ratings,
		cache:  cache,
		logger: logger,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	hs.modelMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "model_info",
		Help: "Active factor model characteristics",
	}, []string{"metric_type"})

	hs.ledgerMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ledger_info",
		Help: "Rating ledger aggregate counters",
	}, []string{"metric_type"})

	hs.systemMetrics = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "system_info",
		Help: "System information metrics",
	}, []string{"metric_type"})

	// Ignore duplicate registration so tests can build multiple services.
	for _, c := range []prometheus.Collector{hs.healthCheckStatus, hs.modelMetrics, hs.ledgerMetrics, hs.systemMetrics} {
		if err := prometheus.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				logger.WithError(err).Warn("Failed to register health metric")
			}
		}
	}

	go hs.collectSystemMetrics()
	go hs.collectDomainMetrics()

	return hs
}

// CheckHealth builds the health payload and refreshes the gauges.
func (s *HealthService) CheckHealth(ctx context.Context) *models.HealthResponse {
	resp := &models.HealthResponse{Timestamp: time.Now().UTC()}

	m := s.store.Active()
	if m != nil {
		resp.ModelLoaded = true
		resp.ModelVersion = m.Meta().Version
		resp.NUsers = m.NumUsers()
		resp.NItems = m.NumItems()
		resp.GlobalMean = math.Round(m.GlobalMean()*1000) / 1000
		s.setStatus("model", true)
	} else {
		s.setStatus("model", false)
	}

	ledgerHealthy := true
	if stats, err := s.ledger.Stats(ctx); err != nil {
		ledgerHealthy = false
		s.logger.WithError(err).Error("Ledger is unhealthy")
	} else {
		resp.LedgerStats = stats
	}
	s.setStatus("ledger", ledgerHealthy)

	cacheHealthy := true
	if s.cache != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := s.cache.Ping(pingCtx).Err(); err != nil {
			cacheHealthy = false
			s.logger.WithError(err).Warn("Redis cache is unhealthy")
		}
		cancel()
		s.setStatus("redis", cacheHealthy)
	}

	switch {
	case !resp.ModelLoaded || !ledgerHealthy:
		resp.Status = "unhealthy"
	case !cacheHealthy:
		resp.Status = "degraded"
	default:
		resp.Status = "healthy"
	}
	return resp
}

func (s *HealthService) setStatus(service string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(service).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(service).Set(0)
	}
}

// collectDomainMetrics refreshes model and ledger gauges.
func (s *HealthService) collectDomainMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if m := s.store.Active(); m != nil {
			s.modelMetrics.WithLabelValues("loaded").Set(1)
			s.modelMetrics.WithLabelValues("users").Set(float64(m.NumUsers()))
			s.modelMetrics.WithLabelValues("items").Set(float64(m.NumItems()))
			s.modelMetrics.WithLabelValues("global_mean").Set(m.GlobalMean())
			s.modelMetrics.WithLabelValues("trained_at_unix").Set(float64(m.Meta().TrainedAt.Unix()))
		} else {
			s.modelMetrics.WithLabelValues("loaded").Set(0)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if stats, err := s.ledger.Stats(ctx); err == nil {
			s.ledgerMetrics.WithLabelValues("total_ratings").Set(float64(stats.TotalRatings))
			s.ledgerMetrics.WithLabelValues("distinct_users").Set(float64(stats.DistinctUsers))
			s.ledgerMetrics.WithLabelValues("distinct_items").Set(float64(stats.DistinctItems))
		}
		cancel()
	}
}

// collectSystemMetrics collects runtime-level metrics.
func (s *HealthService) collectSystemMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	var memStats runtime.MemStats

	for range ticker.C {
		runtime.ReadMemStats(&memStats)

		s.systemMetrics.WithLabelValues("memory_alloc_bytes").Set(float64(memStats.Alloc))
		s.systemMetrics.WithLabelValues("memory_sys_bytes").Set(float64(memStats.Sys))
		s.systemMetrics.WithLabelValues("goroutines_count").Set(float64(runtime.NumGoroutine()))
		s.systemMetrics.WithLabelValues("gc_runs_total").Set(float64(memStats.NumGC))
	}
}
