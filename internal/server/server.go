// Package server exposes the extraction service over HTTP/JSON.
//
// Routes:
//
//	GET  /      → health probe ("UP")
//	POST /meta  → table metadata + vchunk plan for a byte-width budget
//	POST /read  → extract rows for a vchunk plan; persist and/or return inline
//	POST /info  → verify the remote connection, return its attributes
//
// Connection details travel in each request body; the server dials a gateway
// client per request and releases it unconditionally when the request ends.
// Vchunk plans are cached per (gateway, table, fields, budget) and populated
// through singleflight so concurrent /meta calls for the same table share
// one metadata read.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"saptab/internal/catalog"
	"saptab/internal/chunk"
	"saptab/internal/config"
	"saptab/internal/extract"
	"saptab/internal/metrics"
	"saptab/internal/rfc"
	"saptab/internal/storage"
)

// gatewayClient is what the server needs from a dialed connection. *rfc.Client
// satisfies it; tests substitute fakes.
type gatewayClient interface {
	extract.TableReader
	TableFields(ctx context.Context, table string) ([]catalog.Field, error)
	Ping(ctx context.Context) error
	Attributes(ctx context.Context) (map[string]string, error)
	Close()
}

// Server wraps http.Server wiring for the extraction endpoints.
type Server struct {
	cfg config.Config
	mux *http.ServeMux

	// dial and openRepo are injectable for tests.
	dial     func(rfc.Config) (gatewayClient, error)
	openRepo func(ctx context.Context, cfg storage.Config) (storage.Repository, error)

	plans *planCache
	group singleflight.Group
}

// New constructs a Server with routes registered.
func New(cfg config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
		dial: func(c rfc.Config) (gatewayClient, error) {
			return rfc.Dial(c)
		},
		openRepo: storage.New,
		plans:    newPlanCache(),
	}
	s.routes()
	return s
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	log.Printf("server: listening on %s", s.cfg.Server.Addr)
	return http.ListenAndServe(s.cfg.Server.Addr, s.mux)
}

// Handler returns the route mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleHealth)
	s.mux.HandleFunc("/meta", s.handleMeta)
	s.mux.HandleFunc("/read", s.handleRead)
	s.mux.HandleFunc("/info", s.handleInfo)
}

// gatewayConfig merges the per-request connection details with the
// server-wide transport defaults.
func (s *Server) gatewayConfig(cnxn rfc.Config) rfc.Config {
	if cnxn.GatewayURL == "" {
		cnxn.GatewayURL = s.cfg.Gateway.URL
	}
	cnxn.Timeout = time.Duration(s.cfg.Gateway.TimeoutSeconds) * time.Second
	cnxn.MaxRetries = s.cfg.Gateway.MaxRetries
	if s.cfg.Gateway.InsecureSkipVerify {
		cnxn.InsecureSkipVerify = true
	}
	return cnxn
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "UP")
}

type metaRequest struct {
	Cnxn       rfc.Config `json:"cnxn"`
	Table      string     `json:"table"`
	Fields     []string   `json:"fields,omitempty"`
	BufferSize int        `json:"buffer_size,omitempty"`
}

type metaResponse struct {
	Fields  []catalog.Field `json:"fields"`
	VChunks []chunk.VChunk  `json:"vchunks"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	var req metaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" {
		http.Error(w, "table is required", http.StatusBadRequest)
		return
	}
	budget := req.BufferSize
	if budget <= 0 {
		budget = s.cfg.Extract.BufferSize
	}
	cnxn := s.gatewayConfig(req.Cnxn)

	start := time.Now()
	entry, err := s.plan(r.Context(), cnxn, req.Table, req.Fields, budget)
	metrics.RecordStep(req.Table, "meta", err, time.Since(start))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, metaResponse{Fields: entry.fields, VChunks: entry.vchunks})
}

// plan returns the cached vchunk plan for the request, loading it through
// singleflight on a miss.
func (s *Server) plan(ctx context.Context, cnxn rfc.Config, table string, fields []string, budget int) (planEntry, error) {
	key := planKey(cnxn.GatewayURL, cnxn.Client, table, fields, budget)
	if entry, ok := s.plans.get(key); ok {
		return entry, nil
	}

	v, err, _ := s.group.Do(strconv.FormatUint(key, 16), func() (any, error) {
		if entry, ok := s.plans.get(key); ok {
			return entry, nil
		}
		// The load is shared across waiters, so it must not die with the
		// first caller's request context. The gateway client's own timeout
		// still bounds the read.
		entry, err := s.loadPlan(context.WithoutCancel(ctx), cnxn, table, fields, budget)
		if err != nil {
			return planEntry{}, err
		}
		s.plans.put(key, entry)
		return entry, nil
	})
	if err != nil {
		return planEntry{}, err
	}
	return v.(planEntry), nil
}

// loadPlan performs the metadata read and chunk planning for one table.
func (s *Server) loadPlan(ctx context.Context, cnxn rfc.Config, table string, fields []string, budget int) (planEntry, error) {
	client, err := s.dial(cnxn)
	if err != nil {
		return planEntry{}, err
	}
	defer client.Close()

	records, err := client.TableFields(ctx, table)
	if err != nil {
		return planEntry{}, err
	}
	cat, err := catalog.New(records)
	if err != nil {
		return planEntry{}, fmt.Errorf("table %s: %w", table, err)
	}

	if len(fields) == 0 {
		fields = cat.Names()
	}
	vchunks, err := chunk.Plan(fields, cat, budget)
	if err != nil {
		return planEntry{}, fmt.Errorf("table %s: %w", table, err)
	}
	return planEntry{fields: cat.Fields(), vchunks: vchunks}, nil
}

type readRequest struct {
	Cnxn       rfc.Config      `json:"cnxn"`
	Table      string          `json:"table"`
	VChunks    []chunk.VChunk  `json:"vchunks"`
	Offset     int             `json:"offset,omitempty"`
	Count      int             `json:"count,omitempty"`
	Where      string          `json:"where,omitempty"`
	WindowSize int             `json:"window_size,omitempty"`
	Sink       *storage.Config `json:"sink,omitempty"`
	SinkTable  string          `json:"sink_table,omitempty"`
	Keep       bool            `json:"keep,omitempty"`
}

type datasetJSON struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

type readResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	Count     int          `json:"count"`
	Data      *datasetJSON `json:"data,omitempty"`
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var req readRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Table == "" {
		http.Error(w, "table is required", http.StatusBadRequest)
		return
	}
	if len(req.VChunks) == 0 {
		http.Error(w, "vchunks are required; call /meta first", http.StatusBadRequest)
		return
	}

	cnxn := s.gatewayConfig(req.Cnxn)
	client, err := s.dial(cnxn)
	if err != nil {
		httpError(w, err)
		return
	}
	defer client.Close()

	driver := &extract.Driver{
		Assembler: &extract.Assembler{
			Fetcher: &extract.Fetcher{
				Reader:    &countingReader{inner: client, table: req.Table},
				Table:     req.Table,
				Delimiter: s.cfg.Extract.Delimiter,
			},
		},
		Sink: s.sinkFor(req),
	}

	start := time.Now()
	var ds *extract.Dataset
	if req.Count > 0 {
		ds, err = driver.ExtractWindow(r.Context(), req.VChunks,
			extract.Window{Offset: req.Offset, Count: req.Count}, req.Where)
	} else {
		windowSize := req.WindowSize
		if windowSize <= 0 {
			windowSize = s.cfg.Extract.WindowSize
		}
		ds, err = driver.Extract(r.Context(), req.VChunks, windowSize, req.Where)
	}
	metrics.RecordStep(req.Table, "read", err, time.Since(start))
	if err != nil {
		httpError(w, err)
		return
	}
	metrics.RecordRows(req.Table, "assembled", int64(ds.Count()))

	resp := readResponse{Status: "OK", Timestamp: ds.Timestamp, Count: ds.Count()}
	if req.Keep {
		resp.Data = &datasetJSON{Header: ds.Columns, Rows: ds.Rows}
	}
	writeJSON(w, resp)
}

// sinkFor resolves the persistence sink for one read request: the request's
// inline sink config when present, otherwise the server default, otherwise
// none (inline-only read). The repository is opened inside the returned
// function and released unconditionally when the append finishes.
func (s *Server) sinkFor(req readRequest) extract.SinkFunc {
	cfg := storage.Config{
		Kind:            s.cfg.Sink.Kind,
		DSN:             s.cfg.Sink.DSN,
		AutoCreateTable: s.cfg.Sink.AutoCreateTable,
	}
	if req.Sink != nil {
		cfg = *req.Sink
	}
	if cfg.Kind == "" {
		return nil
	}
	if cfg.Table == "" {
		cfg.Table = req.SinkTable
	}
	if cfg.Table == "" {
		cfg.Table = req.Table
	}

	return func(ctx context.Context, ds *extract.Dataset) (int64, error) {
		repo, err := s.openRepo(ctx, cfg)
		if err != nil {
			return 0, fmt.Errorf("open sink: %w", err)
		}
		defer repo.Close()

		if cfg.AutoCreateTable {
			if err := storage.EnsureTable(ctx, cfg.Kind, repo, cfg.Table, ds.Columns); err != nil {
				return 0, fmt.Errorf("ensure sink table: %w", err)
			}
		}
		n, err := storage.AppendDataset(ctx, repo, ds, s.cfg.Extract.BatchSize)
		if err != nil {
			return n, err
		}
		metrics.RecordRows(cfg.Table, "persisted", n)
		return n, nil
	}
}

type infoRequest struct {
	Cnxn rfc.Config `json:"cnxn"`
}

type infoResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// handleInfo checks the connection to the remote system. Failures are
// reported in the response body with status "fail", matching the contract
// callers already script against.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req infoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start := time.Now()
	attrs, err := s.connectionInfo(r.Context(), s.gatewayConfig(req.Cnxn))
	metrics.RecordStep("", "info", err, time.Since(start))
	if err != nil {
		writeJSON(w, infoResponse{Status: "fail", Data: err.Error()})
		return
	}
	writeJSON(w, infoResponse{Status: "OK", Data: attrs})
}

func (s *Server) connectionInfo(ctx context.Context, cnxn rfc.Config) (map[string]string, error) {
	client, err := s.dial(cnxn)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return nil, err
	}
	return client.Attributes(ctx)
}

// countingReader counts remote reads without the extract package having to
// know about metrics.
type countingReader struct {
	inner extract.TableReader
	table string
}

func (c *countingReader) ReadTable(ctx context.Context, req extract.ReadRequest) ([]string, error) {
	metrics.RecordCalls(c.table, 1)
	return c.inner.ReadTable(ctx, req)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: write response: %v", err)
	}
}

// httpError maps error taxonomy to status codes: planning errors the caller
// can fix get 422, everything else is a failed run.
func httpError(w http.ResponseWriter, err error) {
	var unknown *chunk.UnknownFieldError
	var mismatch *extract.RowCountMismatchError
	switch {
	case errors.As(err, &unknown), errors.Is(err, catalog.ErrEmptyCatalog):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.As(err, &mismatch):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
