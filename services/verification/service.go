package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	health "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"licensure-verifier/pkg/db/option"
	"licensure-verifier/pkg/errutil"
	"licensure-verifier/pkg/repository"
	"licensure-verifier/services/provider"
	"licensure-verifier/services/verification/metrics"
)

const tracerName = "verification"

// Failure reasons, as recorded in metrics and per-provider outcomes.
const (
	reasonUnknownProvider = "unknown_provider"
	reasonAdapter         = "adapter"
	reasonStorage         = "storage"
)

// StorageError reports a failed row insert during a run.
type StorageError struct {
	Provider string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storing records for provider %q failed: %v", e.Provider, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

type Service struct {
	health.UnimplementedHealthServer

	db       *gorm.DB
	node     *snowflake.Node
	registry *provider.Registry
	metrics  *metrics.Metrics

	licenses repository.Repository[License]
}

type ServiceParams struct {
	fx.In

	DB       *gorm.DB
	Node     *snowflake.Node
	Registry *provider.Registry
	Metrics  *metrics.Metrics
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		node:     p.Node,
		registry: p.Registry,
		metrics:  p.Metrics,

		licenses: repository.ProvideStore[License](p.DB),
	}
}

// ProviderOutcome is the per-provider result within a run summary.
type ProviderOutcome struct {
	Provider     string `json:"provider"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	Records      int    `json:"records"`
	Error        string `json:"error,omitempty"`
}

type RunSummary struct {
	Requested int               `json:"requested"`
	Processed int               `json:"processed"`
	Outcomes  []ProviderOutcome `json:"outcomes"`
}

// Run verifies each requested provider in order: resolve the adapter, fetch
// its records, persist every record as a new row. The run is best-effort:
// a failing provider never stops the others, and rows already written stay
// written. When any provider failed, the returned error classifies the worst
// failure and names each failed provider; the summary is complete either way.
func (s *Service) Run(ctx context.Context, providers []string) (*RunSummary, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "verification.run")
	defer span.End()

	start := time.Now()
	defer func() {
		s.metrics.ObserveRunDuration(time.Since(start))
	}()

	traceID := span.SpanContext().TraceID().String()
	spanID := span.SpanContext().SpanID().String()
	opts := []zap.Field{
		zap.String("trace_id", traceID),
		zap.String("span_id", spanID),
	}

	summary := &RunSummary{
		Requested: len(providers),
		Outcomes:  make([]ProviderOutcome, 0, len(providers)),
	}

	var (
		details    []errutil.Detail
		hasUnknown bool
		hasAdapter bool
		hasStorage bool
	)

	fail := func(name, reason string, err error) {
		s.metrics.IncrementProviderFailure(name, reason)
		details = append(details, errutil.Detail{Field: name, Message: err.Error()})
		zap.L().With(opts...).Warn("provider failed",
			zap.String("provider", name),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}

	for _, name := range providers {
		outcome := ProviderOutcome{Provider: name}

		adapter, err := s.registry.Resolve(name)
		if err != nil {
			hasUnknown = true
			outcome.Error = err.Error()
			summary.Outcomes = append(summary.Outcomes, outcome)
			fail(name, reasonUnknownProvider, err)
			continue
		}
		outcome.Jurisdiction = adapter.Jurisdiction().String()

		records, err := adapter.Fetch(ctx, name)
		if err != nil {
			var adapterErr *provider.AdapterError
			if !errors.As(err, &adapterErr) {
				err = &provider.AdapterError{Jurisdiction: adapter.Jurisdiction(), Err: err}
			}
			hasAdapter = true
			outcome.Error = err.Error()
			summary.Outcomes = append(summary.Outcomes, outcome)
			fail(name, reasonAdapter, err)
			continue
		}

		for _, rec := range records {
			row := NewLicense(s.node.Generate().String(), name, rec)
			if err := s.licenses.Create(ctx, row); err != nil {
				storageErr := &StorageError{Provider: name, Err: err}
				hasStorage = true
				outcome.Error = storageErr.Error()
				fail(name, reasonStorage, storageErr)
				break
			}
			outcome.Records++
			summary.Processed++
		}

		s.metrics.AddRecordsWritten(name, outcome.Records)
		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	if len(details) > 0 {
		s.metrics.IncrementRun("failed")
		return summary, s.runError(hasStorage, hasAdapter, hasUnknown, details)
	}

	s.metrics.IncrementRun("ok")
	zap.L().With(opts...).Info("run completed",
		zap.Int("requested", summary.Requested),
		zap.Int("processed", summary.Processed),
	)

	return summary, nil
}

// runError maps the run's failures to the worst error class: a storage
// failure outranks a provider lookup failure, which outranks a bad provider
// name.
func (s *Service) runError(hasStorage, hasAdapter, hasUnknown bool, details []errutil.Detail) error {
	switch {
	case hasStorage:
		return errutil.Internal("run failed to persist records", nil, errutil.WithDetails(details...))
	case hasAdapter:
		return errutil.BadGateway("provider lookup failed", nil, errutil.WithDetails(details...))
	default:
		details = append(details, errutil.Detail{
			Field:   "known_providers",
			Message: strings.Join(s.registry.Names(), ", "),
		})
		return errutil.BadRequest("unknown provider requested", nil, errutil.WithDetails(details...))
	}
}

// ListFilter narrows List results. Provider substring-matches licensee full
// names case-insensitively; State matches the stored jurisdiction code
// exactly after upper-casing.
type ListFilter struct {
	Provider string
	State    string
}

// List returns stored rows in insertion order.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*License, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	traceID := span.SpanContext().TraceID().String()
	spanID := span.SpanContext().SpanID().String()

	opts := []zap.Field{
		zap.String("trace_id", traceID),
		zap.String("span_id", spanID),
	}

	query := &License{}
	if filter.State != "" {
		query.State = strings.ToUpper(filter.State)
	}

	queryOpts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at"}),
		option.WithSortBy(option.QuerySortBy{SortBy: "id"}),
	}
	if filter.Provider != "" {
		queryOpts = append(queryOpts, option.ApplyOperator(option.Condition{
			Field:    "full_name",
			Operator: option.ILIKE,
			Value:    "%" + filter.Provider + "%",
		}))
	}

	rows, err := s.licenses.Find(ctx, query, queryOpts...)
	if err != nil {
		zap.L().With(opts...).Error("failed to query licenses", zap.Error(err))
		return nil, errutil.Internal("failed to list licenses", err)
	}

	return rows, nil
}
