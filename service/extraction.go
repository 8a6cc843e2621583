package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/export"
	"github.com/pslima001/govy-function-current-sub002/extract"
	"github.com/pslima001/govy-function-current-sub002/items"
	"github.com/pslima001/govy-function-current-sub002/model"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
	"github.com/pslima001/govy-function-current-sub002/tables"
)

// Sources are the document views the extractors read. TableA and TableB feed
// the first two item layers and the list parameters; Text feeds everything
// else.
type Sources struct {
	TableA items.TableSource
	TableB items.TableSource
	Text   items.TextSource
}

// DefaultSources wires the stored MinerU content list as table layer A, the
// parsed layout (or the .docx itself) as table layer B, and the first of
// them that has text as the text source.
func DefaultSources(objects ObjectReader) Sources {
	contentList := NewContentListProvider(objects)
	second := byFormat{
		layout: NewLayoutProvider(objects),
		docx:   NewDocxProvider(objects),
	}
	return Sources{
		TableA: contentList,
		TableB: second,
		Text:   TextChain{contentList, second},
	}
}

// byFormat reads .docx refs directly and everything else through the
// parsed layout.
type byFormat struct {
	layout *LayoutProvider
	docx   *DocxProvider
}

func (b byFormat) Tables(ctx context.Context, doc model.Document) ([]model.DetectedTable, error) {
	if IsDocx(doc.Ref) {
		return b.docx.Tables(ctx, doc)
	}
	return b.layout.Tables(ctx, doc)
}

func (b byFormat) Text(ctx context.Context, doc model.Document) (string, error) {
	if IsDocx(doc.Ref) {
		return b.docx.Text(ctx, doc)
	}
	return b.layout.Text(ctx, doc)
}

type listParameter struct {
	table    *tables.ListExtractor
	fallback *extract.Addresses
	cap      int
}

// Extraction is the parameter registry. It is built once from the rules
// file and shared across requests.
type Extraction struct {
	ids      []string
	labels   map[string]string
	scalars  map[string]*extract.Scalar
	sections map[string]*extract.Section
	lists    map[string]*listParameter
	items    *items.Extractor

	sources    Sources
	sink       export.Sink
	encoder    export.Encoder
	maxValues  int
	candidates int
}

// NewExtraction compiles every rule. Any invalid pattern fails the whole
// registry.
func NewExtraction(rules *config.Rules, cfg config.ExtractionConfig, sources Sources, sink export.Sink) (*Extraction, error) {
	enc, err := export.EncoderFor(cfg.ExportFormat)
	if err != nil {
		return nil, err
	}
	e := &Extraction{
		ids:        rules.ParameterIDs(),
		labels:     make(map[string]string),
		scalars:    make(map[string]*extract.Scalar),
		sections:   make(map[string]*extract.Section),
		lists:      make(map[string]*listParameter),
		sources:    sources,
		sink:       sink,
		encoder:    enc,
		maxValues:  cfg.MaxLocations,
		candidates: cfg.Candidates,
	}

	for _, r := range rules.Scalars {
		s, err := extract.NewScalar(r)
		if err != nil {
			return nil, fmt.Errorf("scalar %s: %w", r.ID, err)
		}
		e.scalars[r.ID] = s
		e.labels[r.ID] = s.Label()
	}
	for _, r := range rules.Sections {
		s, err := extract.NewSection(r)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", r.ID, err)
		}
		e.sections[r.ID] = s
		e.labels[r.ID] = s.Label()
	}
	for _, r := range rules.Lists {
		x, err := tables.NewListExtractor(r.Table)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", r.Table.ID, err)
		}
		p := &listParameter{table: x, cap: r.Cap}
		if p.cap == 0 {
			p.cap = cfg.LocationCap
		}
		if r.Fallback != nil {
			if p.fallback, err = extract.NewAddresses(*r.Fallback); err != nil {
				return nil, fmt.Errorf("list %s fallback: %w", r.Table.ID, err)
			}
		}
		e.lists[r.Table.ID] = p
		e.labels[r.Table.ID] = x.Label()
	}

	itemCfg := rules.Items
	itemCfg.MaxItems = cfg.MaxItems
	itemCfg.Concurrent = cfg.Concurrent()
	if e.items, err = items.New(itemCfg, sources.TableA, sources.TableB, sources.Text); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	e.labels[config.ItemsParameter] = "Itens"
	return e, nil
}

// Parameters lists the registered parameter ids in rules order.
func (e *Extraction) Parameters() []string {
	return append([]string(nil), e.ids...)
}

func (e *Extraction) known(id string) bool {
	if id == config.ItemsParameter {
		return true
	}
	_, scalar := e.scalars[id]
	_, section := e.sections[id]
	_, list := e.lists[id]
	return scalar || section || list
}

// document loads the text and the tables of one document at most once.
type document struct {
	ref     model.Document
	sources Sources

	text    string
	textErr error
	hasText bool

	tables    []model.DetectedTable
	hasTables bool
}

func (d *document) Text(ctx context.Context) (string, error) {
	if !d.hasText {
		d.hasText = true
		if d.sources.Text == nil {
			d.textErr = model.ErrProviderUnavailable
		} else {
			d.text, d.textErr = d.sources.Text.Text(ctx, d.ref)
		}
	}
	return d.text, d.textErr
}

// Tables merges both table sources. A failing source only loses its own
// tables.
func (d *document) Tables(ctx context.Context) []model.DetectedTable {
	if d.hasTables {
		return d.tables
	}
	d.hasTables = true
	for _, src := range []items.TableSource{d.sources.TableA, d.sources.TableB} {
		if src == nil {
			continue
		}
		t, err := src.Tables(ctx, d.ref)
		if err != nil {
			logger.Debug(ctx, "table source unavailable", "document_ref", d.ref.Ref, "error", err)
			continue
		}
		d.tables = append(d.tables, t...)
	}
	return d.tables
}

// Extract runs the requested parameters over doc, in the order given. No
// parameters means all of them.
func (e *Extraction) Extract(ctx context.Context, doc model.Document, params []string) ([]model.Result, error) {
	defer observeDuration("extract", time.Now())

	if strings.TrimSpace(doc.Ref) == "" {
		return nil, fmt.Errorf("%w: document_ref is required", model.ErrInvalidInput)
	}
	if len(params) == 0 {
		params = e.ids
	}
	for _, p := range params {
		if !e.known(p) {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownParameter, p)
		}
	}

	d := &document{ref: doc, sources: e.sources}
	results := make([]model.Result, 0, len(params))
	for _, p := range params {
		r, err := e.extractOne(ctx, d, p)
		if err != nil {
			return nil, err
		}
		observeParameter(p, r.Found())
		results = append(results, r)
	}
	return results, nil
}

func (e *Extraction) extractOne(ctx context.Context, d *document, id string) (model.Result, error) {
	if id == config.ItemsParameter {
		return e.itemsResult(ctx, d.ref), nil
	}
	if p, ok := e.lists[id]; ok {
		return e.list(ctx, d, id, p)
	}

	text, err := d.Text(ctx)
	if err != nil {
		return model.Result{}, fmt.Errorf("text of %s: %w", d.ref.Ref, err)
	}
	if s, ok := e.scalars[id]; ok {
		r := model.NewScalarResult(id, e.labels[id], s.Extract(text))
		if e.candidates > 1 && r.Found() {
			r.Candidates = s.Candidates(text, e.candidates)
		}
		return r, nil
	}
	return model.NewScalarResult(id, e.labels[id], e.sections[id].Extract(text)), nil
}

// list extracts from qualifying tables, falls back to free-text addresses
// when no table yields values, and caps the shown values.
func (e *Extraction) list(ctx context.Context, d *document, id string, p *listParameter) (model.Result, error) {
	values := p.table.ClassifyAndExtract(d.Tables(ctx), e.maxValues)
	if len(values.Values) == 0 && p.fallback != nil {
		text, err := d.Text(ctx)
		switch {
		case err == nil:
			values = p.fallback.Extract(text, e.maxValues)
		case errors.Is(err, model.ErrProviderUnavailable):
			logger.Warn(ctx, "no text for list fallback", "document_ref", d.ref.Ref, "parameter", id)
		default:
			return model.Result{}, fmt.Errorf("text of %s: %w", d.ref.Ref, err)
		}
	}

	r := model.NewListResult(id, e.labels[id], values)
	exp, err := export.WithCap(ctx, values.Values, p.cap, e.sink, overflowPrefix(ctx, d.ref, id), e.encoder)
	if exp.Total > p.cap && p.cap > 0 {
		observeExport(err)
	}
	if err != nil {
		logger.Warn(ctx, "overflow export failed", "document_ref", d.ref.Ref, "parameter", id, "error", err)
	}
	r.List.Values = exp.Shown
	r.Total = exp.Total
	r.Overflow = exp.FilePath
	return r, nil
}

// overflowPrefix is <tenant>/<request id>_<parameter>.
func overflowPrefix(ctx context.Context, doc model.Document, id string) string {
	tenant := doc.Tenant
	if tenant == "" {
		tenant = "default"
	}
	requestID, _ := ctx.Value(logger.RequestIDKey).(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return tenant + "/" + requestID + "_" + id
}

// ExtractItems runs the consensus item extractor.
func (e *Extraction) ExtractItems(ctx context.Context, doc model.Document) (items.Result, error) {
	defer observeDuration("items", time.Now())

	if strings.TrimSpace(doc.Ref) == "" {
		return items.Result{}, fmt.Errorf("%w: document_ref is required", model.ErrInvalidInput)
	}
	res := e.items.Extract(ctx, doc)
	observeItems(res)
	return res, nil
}

// itemsResult folds the consensus items into a list envelope. The score is
// the mean share of layers supporting each item.
func (e *Extraction) itemsResult(ctx context.Context, doc model.Document) model.Result {
	res := e.items.Extract(ctx, doc)
	observeItems(res)

	list := model.EmptyList()
	support := 0
	for _, it := range res.Items {
		list.Values = append(list.Values, itemLine(it))
		support += len(it.SupportingLayers)
	}
	if len(res.Items) > 0 {
		list.Score = int(math.Round(100 * float64(support) / float64(len(res.Items)*len(model.Layers))))
	}
	parts := make([]string, 0, len(res.Layers))
	for _, l := range res.Layers {
		parts = append(parts, fmt.Sprintf("%s=%d", l.Layer, l.Candidates))
	}
	list.Evidence = fmt.Sprintf("status=%s; %s", res.Status, strings.Join(parts, " "))

	r := model.NewListResult(config.ItemsParameter, e.labels[config.ItemsParameter], list)
	r.Total = len(res.Items) + res.Dropped
	return r
}

func itemLine(it model.ConsensusItem) string {
	var b strings.Builder
	if it.Number > 0 {
		fmt.Fprintf(&b, "%d - ", it.Number)
	}
	b.WriteString(it.Description)
	if it.Quantity != "" {
		b.WriteString(" | " + it.Quantity)
		if it.Unit != "" {
			b.WriteString(" " + it.Unit)
		}
	}
	return b.String()
}
