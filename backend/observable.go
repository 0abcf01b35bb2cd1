package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/mapx/logger"
	"github.com/hatlonely/mapx/query"
)

// ObservableOptions 观测装饰器选项
type ObservableOptions struct {
	// EnableMetrics 是否启用指标收集
	EnableMetrics bool `cfg:"enableMetrics" def:"true"`

	// EnableLogging 是否启用日志记录
	EnableLogging bool `cfg:"enableLogging" def:"true"`

	// EnableTracing 是否启用分布式追踪
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 组件名称标识，用于所有观测维度
	// - Metrics: 作为指标名前缀
	// - Logging: 作为 component 字段值
	// - Tracing: 作为 span 的 component 属性
	Name string `cfg:"name" def:"backend"`

	// Logger 日志记录器，EnableLogging 时必须提供
	Logger logger.Logger

	// Registerer 指标注册表，默认使用 prometheus 全局注册表
	Registerer prometheus.Registerer
}

// ObservableMetrics 封装 prometheus 指标
type ObservableMetrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
}

// NewObservableMetrics 创建指标收集器
func NewObservableMetrics(name string, registerer prometheus.Registerer) *ObservableMetrics {
	metrics := &ObservableMetrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_operations_total",
				Help: "Total number of backend operations",
			},
			[]string{"operation", "table", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_operation_duration_seconds",
				Help:    "Duration of backend operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation", "table"},
		),
		activeOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_active_operations",
				Help: "Number of active backend operations",
			},
			[]string{"operation"},
		),
	}

	registerer.MustRegister(
		metrics.operationCounter,
		metrics.operationDuration,
		metrics.activeOperations,
	)

	return metrics
}

// Observable 装饰器，为任何 Backend 添加观测能力
type Observable struct {
	backend Backend

	logger        logger.Logger
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableWithOptions(b Backend, options *ObservableOptions) (*Observable, error) {
	if b == nil {
		return nil, errors.New("backend is nil")
	}
	if options == nil {
		options = &ObservableOptions{EnableMetrics: true, EnableLogging: true}
	}
	if options.Name == "" {
		options.Name = "backend"
	}

	obs := &Observable{
		backend:       b,
		name:          options.Name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		if options.Logger == nil {
			l, err := logger.NewSLogWithOptions(nil)
			if err != nil {
				return nil, errors.WithMessage(err, "failed to create default logger")
			}
			options.Logger = l
		}
		obs.logger = options.Logger.WithGroup("observableBackend")
	}

	if options.EnableMetrics {
		registerer := options.Registerer
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		obs.metrics = NewObservableMetrics(options.Name, registerer)
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("backend.%s", options.Name))
	}

	return obs, nil
}

// observeOperation 统一的操作观测逻辑
func (obs *Observable) observeOperation(ctx context.Context, operation string, table string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.enableTracing && obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("backend.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
				attribute.String("table", table),
			),
		)
		defer span.End()
	}

	if obs.enableMetrics && obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if obs.enableTracing && span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.enableMetrics && obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.operationCounter.WithLabelValues(operation, table, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	}

	if obs.enableLogging && obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "backend operation failed",
				"component", obs.name,
				"operation", operation,
				"table", table,
				"duration_ms", duration.Milliseconds(),
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "backend operation completed",
				"component", obs.name,
				"operation", operation,
				"table", table,
				"duration_ms", duration.Milliseconds(),
			)
		}
	}

	return err
}

func (obs *Observable) Query(ctx context.Context, table string, d *query.Descriptor) ([]map[string]any, error) {
	var rows []map[string]any
	err := obs.observeOperation(ctx, "query", table, func(ctx context.Context) error {
		var err error
		rows, err = obs.backend.Query(ctx, table, d)
		return err
	})
	return rows, err
}

func (obs *Observable) Count(ctx context.Context, table string, d *query.Descriptor) (int64, error) {
	var count int64
	err := obs.observeOperation(ctx, "count", table, func(ctx context.Context) error {
		var err error
		count, err = obs.backend.Count(ctx, table, d)
		return err
	})
	return count, err
}

func (obs *Observable) Insert(ctx context.Context, table string, data map[string]any) (any, error) {
	var identity any
	err := obs.observeOperation(ctx, "insert", table, func(ctx context.Context) error {
		var err error
		identity, err = obs.backend.Insert(ctx, table, data)
		return err
	})
	return identity, err
}

func (obs *Observable) UpdateByKey(ctx context.Context, table string, key map[string]any, data map[string]any) (bool, error) {
	var ok bool
	err := obs.observeOperation(ctx, "updateByKey", table, func(ctx context.Context) error {
		var err error
		ok, err = obs.backend.UpdateByKey(ctx, table, key, data)
		return err
	})
	return ok, err
}

func (obs *Observable) UpdateByQuery(ctx context.Context, table string, d *query.Descriptor, data map[string]any) (bool, error) {
	var ok bool
	err := obs.observeOperation(ctx, "updateByQuery", table, func(ctx context.Context) error {
		var err error
		ok, err = obs.backend.UpdateByQuery(ctx, table, d, data)
		return err
	})
	return ok, err
}

func (obs *Observable) DeleteByKey(ctx context.Context, table string, key map[string]any) (bool, error) {
	var ok bool
	err := obs.observeOperation(ctx, "deleteByKey", table, func(ctx context.Context) error {
		var err error
		ok, err = obs.backend.DeleteByKey(ctx, table, key)
		return err
	})
	return ok, err
}

func (obs *Observable) DeleteByQuery(ctx context.Context, table string, d *query.Descriptor) (bool, error) {
	var ok bool
	err := obs.observeOperation(ctx, "deleteByQuery", table, func(ctx context.Context) error {
		var err error
		ok, err = obs.backend.DeleteByQuery(ctx, table, d)
		return err
	})
	return ok, err
}

func (obs *Observable) Close() error {
	return obs.backend.Close()
}
