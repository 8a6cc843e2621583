package items

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
)

// State is a step of one extraction run.
type State int

const (
	StateInit State = iota
	StateLayerA
	StateLayerB
	StateLayerC
	StateReconcile
	StateCap
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateLayerA:
		return "layer_a"
	case StateLayerB:
		return "layer_b"
	case StateLayerC:
		return "layer_c"
	case StateReconcile:
		return "reconcile"
	case StateCap:
		return "cap"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status tells callers whether an empty result is worth retrying.
type Status string

const (
	StatusFound                Status = "found"
	StatusNoItems              Status = "no_items"
	StatusProvidersUnavailable Status = "providers_unavailable"
)

// LayerReport describes how one layer ran.
type LayerReport struct {
	Layer      model.Layer `json:"layer"`
	Available  bool        `json:"available"`
	Candidates int         `json:"candidates"`
	Error      string      `json:"error,omitempty"`
	DurationMs int64       `json:"duration_ms"`
}

// Result is the outcome of one extraction run.
type Result struct {
	Status  Status                `json:"status"`
	Items   []model.ConsensusItem `json:"items"`
	Layers  []LayerReport         `json:"layers"`
	Dropped int                   `json:"dropped"`
	Trace   []State               `json:"-"`
}

// Extractor runs the three layers and reconciles them. It holds no
// per-document state and may be shared.
type Extractor struct {
	strategies map[model.Layer]Strategy
	canon      *Canonicalizer
	maxItems   int
	concurrent bool
}

// New builds an extractor over two table sources and one text source.
// Any source may be nil; its layer then reports unavailable.
func New(cfg Config, tableA, tableB TableSource, text TextSource) (*Extractor, error) {
	cfg = cfg.withDefaults()

	a, err := NewTableLayer(model.TableLayerA, tableA, cfg)
	if err != nil {
		return nil, err
	}
	b, err := NewTableLayer(model.TableLayerB, tableB, cfg)
	if err != nil {
		return nil, err
	}
	c, err := NewTextLayer(text, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithStrategies(cfg, map[model.Layer]Strategy{
		model.TableLayerA: a,
		model.TableLayerB: b,
		model.TextLayer:   c,
	})
}

// NewWithStrategies builds an extractor from prebuilt layer strategies.
func NewWithStrategies(cfg Config, strategies map[model.Layer]Strategy) (*Extractor, error) {
	cfg = cfg.withDefaults()
	canon, err := NewCanonicalizer(cfg.SuffixPattern)
	if err != nil {
		return nil, err
	}
	return &Extractor{
		strategies: strategies,
		canon:      canon,
		maxItems:   cfg.MaxItems,
		concurrent: cfg.Concurrent,
	}, nil
}

// Canonicalizer exposes the grouping key function.
func (e *Extractor) Canonicalizer() *Canonicalizer { return e.canon }

var layerStates = map[model.Layer]State{
	model.TableLayerA: StateLayerA,
	model.TableLayerB: StateLayerB,
	model.TextLayer:   StateLayerC,
}

// Extract runs every layer over doc. Layer failures are recorded in the
// result and never abort the run.
func (e *Extractor) Extract(ctx context.Context, doc model.Document) Result {
	var res Result
	enter := func(s State) {
		res.Trace = append(res.Trace, s)
		logger.Debug(ctx, "item extraction state", "document_ref", doc.Ref, "state", s.String())
	}
	enter(StateInit)
	logger.Debug(ctx, "item extraction started", "document_ref", doc.Ref, "concurrent", e.concurrent)

	candidates := make(map[model.Layer][]model.ItemCandidate, len(model.Layers))
	reports := make([]LayerReport, len(model.Layers))
	results := make([][]model.ItemCandidate, len(model.Layers))

	if e.concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, layer := range model.Layers {
			i, layer := i, layer
			g.Go(func() error {
				results[i], reports[i] = e.runLayer(gctx, layer, doc)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, layer := range model.Layers {
			results[i], reports[i] = e.runLayer(ctx, layer, doc)
		}
	}

	available := 0
	for i, layer := range model.Layers {
		enter(layerStates[layer])
		candidates[layer] = results[i]
		if reports[i].Available {
			available++
		}
	}
	res.Layers = reports

	enter(StateReconcile)
	items := Reconcile(candidates, e.canon)

	enter(StateCap)
	if len(items) > e.maxItems {
		res.Dropped = len(items) - e.maxItems
		items = items[:e.maxItems]
	}
	res.Items = items

	switch {
	case available == 0:
		res.Status = StatusProvidersUnavailable
	case len(items) == 0:
		res.Status = StatusNoItems
	default:
		res.Status = StatusFound
	}
	enter(StateDone)

	logger.Info(ctx, "item extraction finished",
		"document_ref", doc.Ref,
		"status", res.Status,
		"items", len(res.Items),
		"dropped", res.Dropped,
		"layers_available", available,
	)
	return res
}

// runLayer calls one strategy and turns any error or panic into a report.
func (e *Extractor) runLayer(ctx context.Context, layer model.Layer, doc model.Document) (cands []model.ItemCandidate, report LayerReport) {
	start := time.Now()
	report = LayerReport{Layer: layer}
	defer func() {
		if r := recover(); r != nil {
			cands = nil
			report.Available = false
			report.Candidates = 0
			report.Error = fmt.Sprintf("panic: %v", r)
			logger.Error(ctx, "item layer panicked", "layer", layer.String(), "error", r)
		}
		report.DurationMs = time.Since(start).Milliseconds()
	}()

	strategy, ok := e.strategies[layer]
	if !ok || strategy == nil {
		report.Error = model.ErrProviderUnavailable.Error()
		logger.Warn(ctx, "item layer not configured", "layer", layer.String())
		return nil, report
	}

	cands, err := strategy.Candidates(ctx, doc)
	if err != nil {
		report.Error = err.Error()
		logger.Warn(ctx, "item layer unavailable", "layer", layer.String(), "error", err)
		return nil, report
	}

	report.Available = true
	report.Candidates = len(cands)
	logger.Debug(ctx, "item layer finished", "layer", layer.String(), "candidates", len(cands))
	return cands, report
}
