// Package handler serves the finder engine over HTTP and RPC.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/coalesce"
	"github.com/Adithya-Monish-Kumar-K/word-finder/internal/finder/engine"
	apperrors "github.com/Adithya-Monish-Kumar-K/word-finder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/proto"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/word-finder/pkg/tracing"
)

const defaultMaxBodyBytes = 1 << 20

var (
	errBadBody           = apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body")
	errMissingMatrix     = apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "matrix is required")
	errMissingWordstream = apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "wordstream is required")
	errFindTimeout       = apperrors.New(apperrors.ErrTimeout, http.StatusGatewayTimeout, "find timed out")
	errFindCanceled      = apperrors.New(apperrors.ErrCanceled, apperrors.StatusClientClosedRequest, "find canceled")
	errFindFailed        = apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "find failed")
)

// Tracker receives one event per handled find. *analytics.Collector
// implements it.
type Tracker interface {
	Track(event analytics.FindEvent)
}

type Config struct {
	MaxDimension    int
	Workers         int
	DefaultStrategy engine.Strategy
	FindTimeout     time.Duration
	MaxBodyBytes    int64
}

type Handler struct {
	pool      *ants.Pool
	coalescer *coalesce.Group
	tracker   Tracker
	metrics   *metrics.Metrics
	cfg       Config
	logger    *slog.Logger
}

// New builds a handler running engines on pool. coalescer, tracker and m
// may be nil.
func New(pool *ants.Pool, coalescer *coalesce.Group, tracker Tracker, m *metrics.Metrics, cfg Config) *Handler {
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = engine.DefaultMaxDimension
	}
	if cfg.Workers <= 0 {
		cfg.Workers = engine.DefaultWorkers
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		pool:      pool,
		coalescer: coalescer,
		tracker:   tracker,
		metrics:   m,
		cfg:       cfg,
		logger:    slog.Default().With("component", "find-handler"),
	}
}

// Find handles POST /api/v1/find.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req proto.FindRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.reject(ctx, start, req, errBadBody)
		h.writeError(w, errBadBody)
		return
	}

	resp, err := h.find(ctx, start, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// FindRPC serves proto.FindMethod.
func (h *Handler) FindRPC(ctx context.Context, params json.RawMessage) (any, error) {
	start := time.Now()
	var req proto.FindRequest
	if err := json.Unmarshal(params, &req); err != nil {
		h.reject(ctx, start, req, errBadBody)
		return nil, errBadBody
	}
	return h.find(ctx, start, req)
}

// find validates req, runs it and records the outcome. Returned errors are
// safe to show to the caller.
func (h *Handler) find(ctx context.Context, start time.Time, req proto.FindRequest) (*proto.FindResponse, error) {
	log := logger.FromContext(ctx)

	if len(req.Matrix) == 0 {
		h.reject(ctx, start, req, errMissingMatrix)
		return nil, errMissingMatrix
	}
	if len(req.Wordstream) == 0 {
		h.reject(ctx, start, req, errMissingWordstream)
		return nil, errMissingWordstream
	}
	strategy := h.cfg.DefaultStrategy
	if req.Strategy != "" {
		parsed, err := engine.ParseStrategy(req.Strategy)
		if err != nil {
			h.reject(ctx, start, req, err)
			return nil, err
		}
		strategy = parsed
	}

	ctx, span := tracing.Start(ctx, "find", logger.RequestID(ctx))
	span.SetAttr("strategy", strategy.String())
	defer func() {
		span.End()
		span.Log(ctx, log)
	}()

	var (
		res    coalesce.Result
		shared bool
	)
	err := resilience.WithTimeout(ctx, h.cfg.FindTimeout, "find", func(ctx context.Context) error {
		var err error
		res, shared, err = h.run(ctx, req, strategy)
		return err
	})

	event := h.newEvent(ctx, start, req, strategy.String())
	if err != nil {
		switch {
		case apperrors.IsClientError(err):
			event.Outcome = analytics.OutcomeInvalid
			log.Debug("find rejected", "strategy", strategy.String(), "error", err)
		case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			event.Outcome = analytics.OutcomeTimeout
			log.Warn("find timed out", "strategy", strategy.String(), "timeout", h.cfg.FindTimeout)
			err = errFindTimeout
		case errors.Is(err, context.Canceled):
			event.Outcome = analytics.OutcomeCanceled
			log.Debug("find canceled by caller", "strategy", strategy.String())
			err = errFindCanceled
		default:
			event.Outcome = analytics.OutcomeError
			log.Error("find failed", "strategy", strategy.String(), "error", err)
			err = errFindFailed
		}
		span.SetAttr("outcome", string(event.Outcome))
		h.observe(event, time.Since(start))
		return nil, err
	}

	event.Outcome = analytics.OutcomeOK
	if len(res.Words) == 0 {
		event.Outcome = analytics.OutcomeEmpty
	}
	event.UniqueWords = res.Stats.UniqueWords
	event.Found = res.Words
	event.TotalHits = res.Stats.TotalHits
	event.Probes = res.Stats.Probes
	event.Coalesced = shared
	span.SetAttr("outcome", string(event.Outcome))
	span.SetAttr("coalesced", shared)
	h.observe(event, time.Since(start))

	log.Info("find completed",
		"strategy", strategy.String(),
		"rows", event.Rows,
		"cols", event.Cols,
		"query_words", event.QueryWords,
		"found", len(res.Words),
		"coalesced", shared,
		"latency_ms", event.LatencyMs,
	)

	words := res.Words
	if words == nil {
		words = []string{}
	}
	return &proto.FindResponse{Words: words, Strategy: strategy.String()}, nil
}

// run builds a fresh engine for the request grid. Identical concurrent
// requests share one run when a coalescer is configured.
func (h *Handler) run(ctx context.Context, req proto.FindRequest, strategy engine.Strategy) (coalesce.Result, bool, error) {
	find := func() (coalesce.Result, error) {
		_, build := tracing.StartChild(ctx, "engine.new")
		eng, err := engine.New(req.Matrix,
			engine.WithPool(h.pool),
			engine.WithMaxDimension(h.cfg.MaxDimension),
			engine.WithWorkers(h.cfg.Workers),
		)
		build.End()
		if err != nil {
			return coalesce.Result{}, err
		}
		defer eng.Release()

		_, search := tracing.StartChild(ctx, "engine.find")
		words, stats, err := eng.FindWithStats(req.Wordstream, strategy)
		search.SetAttr("tasks", stats.Tasks)
		search.SetAttr("probes", stats.Probes)
		search.End()
		if err != nil {
			return coalesce.Result{}, err
		}
		return coalesce.Result{Words: words, Stats: stats}, nil
	}
	if h.coalescer == nil {
		res, err := find()
		return res, false, err
	}
	key := coalesce.Key(req.Matrix, req.Wordstream, strategy, h.cfg.MaxDimension)
	return h.coalescer.Do(ctx, key, find)
}

func (h *Handler) reject(ctx context.Context, start time.Time, req proto.FindRequest, err error) {
	event := h.newEvent(ctx, start, req, "unknown")
	event.Outcome = analytics.OutcomeInvalid
	h.observe(event, time.Since(start))
	logger.FromContext(ctx).Debug("find rejected", "error", err)
}

func (h *Handler) newEvent(ctx context.Context, start time.Time, req proto.FindRequest, strategy string) analytics.FindEvent {
	event := analytics.FindEvent{
		Type:       analytics.EventFind,
		RequestID:  logger.RequestID(ctx),
		Strategy:   strategy,
		Rows:       len(req.Matrix),
		QueryWords: len(req.Wordstream),
		LatencyMs:  time.Since(start).Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if len(req.Matrix) > 0 {
		event.Cols = utf8.RuneCountInString(req.Matrix[0])
	}
	return event
}

func (h *Handler) observe(event analytics.FindEvent, elapsed time.Duration) {
	if h.metrics != nil {
		h.metrics.FindsTotal.WithLabelValues(event.Strategy, string(event.Outcome)).Inc()
		if event.Outcome == analytics.OutcomeOK || event.Outcome == analytics.OutcomeEmpty {
			h.metrics.FindLatency.WithLabelValues(event.Strategy).Observe(elapsed.Seconds())
			h.metrics.FindResultWords.Observe(float64(len(event.Found)))
			h.metrics.FindProbes.WithLabelValues(event.Strategy).Observe(float64(event.Probes))
			if event.Coalesced {
				h.metrics.FindsCoalescedTotal.Inc()
			}
		}
	}
	if h.tracker != nil {
		h.tracker.Track(event)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": message})
}
