// Package testutil provides an in-process fake of the analysis service.
package testutil

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neilberkman/eqviz/internal/core/models"
)

// RecordedRequest is what the fake saw
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type failure struct {
	status int
	body   string
}

// Backend mimics the REST contract: token login, multipart upload,
// five-entry history, dataset detail and PDF report.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	token     string // required token; empty disables the check
	users     map[string]string
	datasets  map[int64]*models.Dataset
	nextID    int64
	clock     time.Time
	failures  map[string]failure
	gates     map[string]chan struct{}
	responses map[string]any
	requests  []RecordedRequest
}

// NewBackend starts a fake that accepts any credential
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		users:     map[string]string{},
		datasets:  map[int64]*models.Dataset{},
		clock:     time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		failures:  map[string]failure{},
		gates:     map[string]chan struct{}{},
		responses: map[string]any{},
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the API root to hand to api.New
func (b *Backend) URL() string { return b.Server.URL + "/api" }

// RequireToken makes every endpoint except login and register demand token
func (b *Backend) RequireToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// AddUser registers credentials that /login/ accepts
func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
}

// AddDataset stores a dataset as if it had been uploaded
func (b *Backend) AddDataset(filename string, rows []models.Row) *models.Dataset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(filename, rows)
}

// Fail makes path answer with status and body until cleared with status 0
func (b *Backend) Fail(path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, path)
		return
	}
	b.failures[path] = failure{status: status, body: body}
}

// Respond overrides the successful JSON body for path
func (b *Backend) Respond(path string, v any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.responses[path] = v
}

// Gate holds requests to path until the returned channel is closed
func (b *Backend) Gate(path string) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan struct{})
	b.gates[path] = ch
	return ch
}

// Requests returns a copy of everything received so far
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// Dataset returns the stored dataset with id
func (b *Backend) Dataset(id int64) *models.Dataset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.datasets[id]
}

func (b *Backend) addLocked(filename string, rows []models.Row) *models.Dataset {
	b.nextID++
	b.clock = b.clock.Add(time.Minute)
	ds := &models.Dataset{
		ID:         b.nextID,
		Filename:   filename,
		UploadedAt: b.clock,
		Summary:    Summarize(rows),
		Rows:       rows,
	}
	b.datasets[ds.ID] = ds

	// Keep only the newest five, like the real service
	ids := b.sortedIDsLocked()
	for _, id := range ids[min(len(ids), models.HistoryLimit):] {
		delete(b.datasets, id)
	}
	return ds
}

func (b *Backend) sortedIDsLocked() []int64 {
	ids := make([]int64, 0, len(b.datasets))
	for id := range b.datasets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return b.datasets[ids[i]].UploadedAt.After(b.datasets[ids[j]].UploadedAt)
	})
	return ids
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/api")

	b.mu.Lock()
	b.requests = append(b.requests, RecordedRequest{
		Method:        r.Method,
		Path:          p,
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
	})
	gate := b.gates[p]
	fail, failing := b.failures[p]
	token := b.token
	override, overridden := b.responses[p]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if p != "/login/" && p != "/register/" && token != "" && r.Header.Get("Authorization") != "Token "+token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
		return
	}
	if failing {
		if r.Body != nil {
			_, _ = io.Copy(io.Discard, r.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(fail.status)
		_, _ = io.WriteString(w, fail.body)
		return
	}
	if overridden {
		if r.Body != nil {
			_, _ = io.Copy(io.Discard, r.Body)
		}
		writeJSON(w, http.StatusOK, override)
		return
	}

	switch {
	case p == "/login/" && r.Method == http.MethodPost:
		b.login(w, r)
	case p == "/register/" && r.Method == http.MethodPost:
		b.register(w, r)
	case p == "/change-password/" && r.Method == http.MethodPut:
		b.changePassword(w, r)
	case p == "/upload/" && r.Method == http.MethodPost:
		b.upload(w, r)
	case p == "/history/" && r.Method == http.MethodGet:
		b.history(w)
	case strings.HasPrefix(p, "/datasets/") && r.Method == http.MethodGet:
		b.dataset(w, p)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	b.mu.Lock()
	pw, ok := b.users[req.Username]
	token := b.token
	b.mu.Unlock()
	if !ok || pw != req.Password {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}
	if token == "" {
		token = "token-" + req.Username
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user_id": 1, "email": req.Username + "@example.com"})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req["username"]]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"username": {"A user with that username already exists."},
		})
		return
	}
	b.users[req["username"]] = req["password"]
	writeJSON(w, http.StatusCreated, map[string]string{"username": req["username"], "email": req["email"]})
}

func (b *Backend) changePassword(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req["new_password1"] != req["new_password2"] {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"new_password2": {"New passwords must match."}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "code": 200, "message": "Password updated successfully", "data": []any{}})
}

func (b *Backend) upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil || !strings.HasSuffix(header.Filename, ".csv") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "A .csv file is required."})
		return
	}
	defer func() { _ = file.Close() }()

	rows, err := ParseCSV(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	b.mu.Lock()
	ds := b.addLocked(header.Filename, rows)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, ds)
}

func (b *Backend) history(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.Dataset, 0, len(b.datasets))
	for _, id := range b.sortedIDsLocked() {
		out = append(out, b.datasets[id])
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) dataset(w http.ResponseWriter, p string) {
	rest := strings.Trim(strings.TrimPrefix(p, "/datasets/"), "/")
	report := false
	if path.Base(rest) == "report" {
		report = true
		rest = path.Dir(rest)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	b.mu.Lock()
	ds := b.datasets[id]
	b.mu.Unlock()
	if ds == nil {
		if report {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dataset not found"})
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}

	if report {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%d.pdf"`, id))
		_, _ = fmt.Fprintf(w, "%%PDF-1.4\nAnalysis Report for: %s\n%%%%EOF\n", ds.Filename)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ParseCSV reads equipment rows, converting numeric columns
func ParseCSV(r io.Reader) ([]models.Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty file")
	}
	header := records[0]
	for _, col := range []string{models.ColumnType, models.ColumnFlowrate, models.ColumnPressure, models.ColumnTemperature} {
		found := false
		for _, h := range header {
			if h == col {
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("Missing column in CSV file: '%s'", col)
		}
	}

	rows := make([]models.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := models.Row{}
		for i, h := range header {
			if i >= len(rec) {
				continue
			}
			if f, err := strconv.ParseFloat(rec[i], 64); err == nil {
				row[h] = f
			} else {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summarize computes the aggregates the real service attaches to a dataset
func Summarize(rows []models.Row) models.Summary {
	s := models.Summary{TotalCount: len(rows), TypeDistribution: map[string]int{}}
	if len(rows) == 0 {
		return s
	}
	var flow, pressure, temp float64
	for _, r := range rows {
		f, _ := r.Float(models.ColumnFlowrate)
		p, _ := r.Float(models.ColumnPressure)
		t, _ := r.Float(models.ColumnTemperature)
		flow += f
		pressure += p
		temp += t
		s.TypeDistribution[r.String(models.ColumnType)]++
	}
	n := float64(len(rows))
	s.AvgFlowrate = flow / n
	s.AvgPressure = pressure / n
	s.AvgTemperature = temp / n
	return s
}

// SampleRows builds n deterministic equipment rows
func SampleRows(n int) []models.Row {
	rows := make([]models.Row, n)
	for i := range rows {
		rows[i] = sampleRow(i)
	}
	return rows
}

func sampleRow(i int) models.Row {
	types := []string{"Pump", "Compressor", "Valve", "HeatExchanger", "Reactor"}
	return models.Row{
		models.ColumnName:        fmt.Sprintf("Unit-%d", i+1),
		models.ColumnType:        types[i%len(types)],
		models.ColumnFlowrate:    float64(100 + i),
		models.ColumnPressure:    5 + float64(i%7)/2,
		models.ColumnTemperature: float64(80 + i%30),
	}
}

// SampleCSV renders rows of SampleRows(n) as CSV, padded to at least minBytes
func SampleCSV(n, minBytes int) []byte {
	var sb strings.Builder
	sb.WriteString("Equipment Name,Type,Flowrate,Pressure,Temperature\n")
	i := 0
	for i < n || sb.Len() < minBytes {
		r := sampleRow(i)
		fmt.Fprintf(&sb, "%s,%s,%g,%g,%g\n",
			r.String(models.ColumnName), r.String(models.ColumnType),
			r[models.ColumnFlowrate], r[models.ColumnPressure], r[models.ColumnTemperature])
		i++
	}
	return []byte(sb.String())
}
