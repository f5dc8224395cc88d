package clicmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"smileid/internal/platform/config"
	"smileid/internal/platform/logger"
	"smileid/internal/platform/redis"
	"smileid/pkg/domain"
	"smileid/pkg/platform/audit"
	"smileid/pkg/platform/audit/publishers/kafka"
	"smileid/pkg/platform/audit/publishers/ops"
	"smileid/pkg/platform/metrics"
	"smileid/pkg/schemacache"
	"smileid/pkg/webapi"
)

// runtime is a configured client plus the resources it holds.
type runtime struct {
	client   *webapi.Client
	logger   *slog.Logger
	registry *prometheus.Registry
	closers  []func()
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// newRuntime wires the client for one command invocation. Each invocation
// gets its own metrics registry.
func newRuntime(cmd *cobra.Command) (*runtime, error) {
	cfg := loadConfig(cmd)
	log := logger.New(cfg.LogLevel)
	rt := &runtime{logger: log, registry: prometheus.NewRegistry()}

	version, err := domain.ParseAPIVersion(cfg.APIVersion)
	if err != nil {
		return nil, err
	}

	cache, err := rt.schemaCache(cmd.Context(), cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	publisher, err := rt.publisher(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	client, err := webapi.New(cfg.PartnerID, cfg.APIKey, cfg.Server,
		webapi.WithLogger(log),
		webapi.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		webapi.WithMetrics(metrics.NewWithRegistry(rt.registry)),
		webapi.WithPublisher(publisher),
		webapi.WithSchemaCache(cache),
		webapi.WithAPIVersion(version),
		webapi.WithCallbackURL(cfg.CallbackURL),
		webapi.WithPollPolicy(cfg.PollAttempts, cfg.PollDelay),
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.client = client

	if dump, _ := cmd.Flags().GetBool(metricsFlagName); dump {
		rt.closers = append([]func(){func() { rt.writeMetrics(os.Stderr) }}, rt.closers...)
	}
	return rt, nil
}

// schemaCache shares live schemas through redis when configured and
// reachable, otherwise keeps them for the life of the process.
func (r *runtime) schemaCache(ctx context.Context, cfg config.Client) (webapi.SchemaCache, error) {
	memory := schemacache.NewInMemoryCache(cfg.SchemaTTL)
	rc, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect schema cache: %w", err)
	}
	if rc == nil {
		return memory, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Redis.DialTimeout)
	defer cancel()
	if err := rc.Health(ctx); err != nil {
		_ = rc.Close()
		r.logger.Warn("redis unavailable, schema cache kept in memory", "error", err)
		return memory, nil
	}

	r.closers = append(r.closers, func() { _ = rc.Close() })
	r.logger.Debug("schema cache backed by redis")
	return schemacache.NewRedisCache(rc.Client, cfg.SchemaTTL), nil
}

// publisher sends job events to kafka when brokers are configured, otherwise
// to the log. Delivery is best effort either way.
func (r *runtime) publisher(cfg config.Client) (audit.Publisher, error) {
	var sink audit.Publisher = audit.NewLogPublisher(r.logger)
	if cfg.Kafka.Enabled() {
		kp, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, kp.Close)
		sink = kp
	}
	return ops.New(sink,
		ops.WithLogger(r.logger),
		ops.WithMetrics(ops.NewMetrics(r.registry)),
	), nil
}

func (r *runtime) writeMetrics(w io.Writer) {
	families, err := r.registry.Gather()
	if err != nil {
		r.logger.Warn("failed to gather metrics", "error", err)
		return
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			r.logger.Warn("failed to encode metrics", "error", err)
			return
		}
	}
}
