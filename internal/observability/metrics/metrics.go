package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes protocol-level instruments.
type Metrics struct {
	discoveryRequests   metric.Int64Counter
	quotes              metric.Int64Counter
	settlementCallbacks metric.Int64Counter
	verificationFails   metric.Int64Counter
	travelRuleFails     metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "umagate"
	}
	meter := provider.Meter(name)

	discoveryRequests, err := meter.Int64Counter("umagate_discovery_requests_total")
	if err != nil {
		return nil, err
	}
	quotes, err := meter.Int64Counter("umagate_quotes_total")
	if err != nil {
		return nil, err
	}
	settlementCallbacks, err := meter.Int64Counter("umagate_settlement_callbacks_total")
	if err != nil {
		return nil, err
	}
	verificationFails, err := meter.Int64Counter("umagate_verification_failures_total")
	if err != nil {
		return nil, err
	}
	travelRuleFails, err := meter.Int64Counter("umagate_travel_rule_decrypt_failures_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		discoveryRequests:   discoveryRequests,
		quotes:              quotes,
		settlementCallbacks: settlementCallbacks,
		verificationFails:   verificationFails,
		travelRuleFails:     travelRuleFails,
	}, nil
}

// RecordDiscovery counts one discovery request. Mode is "bare" or "rich".
func (m *Metrics) RecordDiscovery(ctx context.Context, tenantID, mode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_id", strings.TrimSpace(tenantID)),
		attribute.String("mode", strings.TrimSpace(mode)),
	)
	m.discoveryRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordQuote counts one issued quote.
func (m *Metrics) RecordQuote(ctx context.Context, tenantID, mode string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_id", strings.TrimSpace(tenantID)),
		attribute.String("mode", strings.TrimSpace(mode)),
	)
	m.quotes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSettlementCallback counts one acknowledged settlement callback.
func (m *Metrics) RecordSettlementCallback(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_id", strings.TrimSpace(tenantID)))
	m.settlementCallbacks.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordVerificationFailure counts one rejected signed message.
func (m *Metrics) RecordVerificationFailure(ctx context.Context, tenantID, endpoint string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("tenant_id", strings.TrimSpace(tenantID)),
		attribute.String("endpoint", strings.TrimSpace(endpoint)),
	)
	m.verificationFails.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTravelRuleFailure counts one undecryptable travel-rule payload.
func (m *Metrics) RecordTravelRuleFailure(ctx context.Context, tenantID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("tenant_id", strings.TrimSpace(tenantID)))
	m.travelRuleFails.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"tenant_id":   {},
	"endpoint":    {},
	"status_code": {},
	"mode":        {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Payer identifiers, usernames, and sender domains never become labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
