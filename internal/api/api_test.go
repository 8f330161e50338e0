// ABOUTME: End-to-end tests for the HTTP API against a temporary SQLite database.
// ABOUTME: Exercises multipart upload, enrichment, CSV download and error mapping.
package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/harperreed/rocketry/internal/config"
	"github.com/harperreed/rocketry/internal/storage"
)

const telemetryCSV = "timestamp,accel_x,accel_y,accel_z,speed_kmph,longitude,latitude,altitude\n" +
	"10:00:00,0.1,0.2,9.8,0,-46.6333,-23.5505,760\n" +
	"10:00:01,0.3,0.1,9.7,12.5,-46.6334,-23.5506,765.5\n" +
	"10:00:02,abc,0.1,9.7,14,-46.6335,-23.5507,770\n" +
	"10:00:03,0.2,0.2,9.6,20,-46.6336,-23.5508,772\n" +
	"10:00:04,0.1,0.1,9.5,22,,,771\n"

func newTestServer(t *testing.T) (*Server, *storage.DB) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Server.RateLimit = 0
	cfg.Worker.PoolSize = 2
	return NewServer(cfg, db), db
}

func validFields() map[string]string {
	return map[string]string{
		"nomeExperimento":   "Voo 1",
		"distanciaAlvo":     "100",
		"dataExperimento":   "15/03/2024",
		"pressaoBar":        "4.5",
		"volumeAgua":        "0.6",
		"massaTotalFoguete": "0.35",
	}
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("arquivoDados", filename)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write file part failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
}

func create(t *testing.T, h http.Handler, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, fields, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/experimentos/novo", body)
	req.Header.Set("Content-Type", ct)
	return do(t, h, req)
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body statusResponse
	decode(t, rec, &body)
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %q", body.Status)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id response header")
	}
}

func TestCreateExperimentWithCSV(t *testing.T) {
	s, db := newTestServer(t)
	h := s.Handler()

	rec := create(t, h, validFields(), "voo1.csv", telemetryCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body createResponse
	decode(t, rec, &body)
	if body.Message != "Experimento e dados do CSV processados e salvos com sucesso!" {
		t.Errorf("unexpected message %q", body.Message)
	}
	if body.Accepted != 4 || body.Rejected != 1 {
		t.Errorf("expected 4 accepted and 1 rejected, got %d/%d", body.Accepted, body.Rejected)
	}
	if body.Date != "2024-03-15" {
		t.Errorf("expected ISO date, got %q", body.Date)
	}
	if body.Filename != "voo1.csv" || body.Name != "Voo 1" {
		t.Errorf("unexpected summary %+v", body)
	}

	_, records, err := db.GetExperiment(context.Background(), body.ID)
	if err != nil {
		t.Fatalf("GetExperiment failed: %v", err)
	}
	if len(records) != 4 {
		t.Errorf("expected 4 stored records, got %d", len(records))
	}
}

func TestCreateExperimentEmptyCSV(t *testing.T) {
	s, _ := newTestServer(t)

	rec := create(t, s.Handler(), validFields(), "vazio.csv", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body createResponse
	decode(t, rec, &body)
	if body.Accepted != 0 || body.Rejected != 0 {
		t.Errorf("expected no rows, got %d/%d", body.Accepted, body.Rejected)
	}
}

func TestCreateExperimentInvalidDateMutatesNothing(t *testing.T) {
	s, db := newTestServer(t)

	fields := validFields()
	fields["dataExperimento"] = "2024-03-15"
	rec := create(t, s.Handler(), fields, "voo1.csv", telemetryCSV)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body errorResponse
	decode(t, rec, &body)
	if !strings.Contains(body.Detail, "dataExperimento") {
		t.Errorf("expected detail to name the field, got %q", body.Detail)
	}

	list, err := db.ListExperiments(context.Background())
	if err != nil {
		t.Fatalf("ListExperiments failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no experiments, got %d", len(list))
	}
}

func TestCreateExperimentRejectsNonCSVFile(t *testing.T) {
	s, db := newTestServer(t)

	rec := create(t, s.Handler(), validFields(), "dados.xlsx", telemetryCSV)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	list, _ := db.ListExperiments(context.Background())
	if len(list) != 0 {
		t.Errorf("expected no experiments, got %d", len(list))
	}
}

func TestCreateExperimentMissingFile(t *testing.T) {
	s, _ := newTestServer(t)

	rec := create(t, s.Handler(), validFields(), "", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateExperimentMalformedCSVKeepsMetadata(t *testing.T) {
	s, db := newTestServer(t)

	bad := "timestamp,altitude\n10:00:00,1,2,3\n"
	rec := create(t, s.Handler(), validFields(), "ruim.csv", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	list, err := db.ListExperiments(context.Background())
	if err != nil {
		t.Fatalf("ListExperiments failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected metadata to remain, got %d experiments", len(list))
	}
	_, records, _ := db.GetExperiment(context.Background(), list[0].ID)
	if len(records) != 0 {
		t.Errorf("expected no telemetry, got %d", len(records))
	}
}

func TestListAndGetExperiment(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	var created createResponse
	decode(t, create(t, h, validFields(), "voo1.csv", telemetryCSV), &created)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/experimentos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	var list struct {
		Experimentos []struct {
			ID   int64  `json:"id"`
			Name string `json:"nome"`
		} `json:"experimentos"`
	}
	decode(t, rec, &list)
	if len(list.Experimentos) != 1 || list.Experimentos[0].ID != created.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/experimentos/"+itoa(created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}
	var detail struct {
		Experimento map[string]interface{}   `json:"experimento"`
		Dados       []map[string]interface{} `json:"dados_associados"`
	}
	decode(t, rec, &detail)
	if len(detail.Dados) != 4 {
		t.Fatalf("expected 4 enriched records, got %d", len(detail.Dados))
	}
	first := detail.Dados[0]
	if first["distancia"] != float64(0) || first["altura_lancamento"] != float64(0) {
		t.Errorf("first record should start at zero, got %v / %v", first["distancia"], first["altura_lancamento"])
	}
	if got := detail.Dados[1]["altura_lancamento"]; got != 5.5 {
		t.Errorf("expected launch height 5.5, got %v", got)
	}
	// the last row has no fix, so cumulative distance does not grow
	if detail.Dados[3]["distancia"] != detail.Dados[2]["distancia"] {
		t.Errorf("distance grew across a row without fix: %v -> %v", detail.Dados[2]["distancia"], detail.Dados[3]["distancia"])
	}
}

func TestGetExperimentNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/experimentos/999", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorResponse
	decode(t, rec, &body)
	if body.Detail == "" {
		t.Error("expected detail in error body")
	}
}

func TestGetExperimentBadID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/experimentos/abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestReplaceExperiment(t *testing.T) {
	s, db := newTestServer(t)
	h := s.Handler()

	var created createResponse
	decode(t, create(t, h, validFields(), "voo1.csv", telemetryCSV), &created)

	form := url.Values{}
	for k, v := range validFields() {
		form.Set(k, v)
	}
	form.Set("nomeExperimento", "Voo 1 revisado")
	form.Set("distanciaAlvo", "150")

	req := httptest.NewRequest(http.MethodPut, "/experimentos/"+itoa(created.ID), strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body messageResponse
	decode(t, rec, &body)
	want := "Experimento com ID " + itoa(created.ID) + " atualizado com sucesso!"
	if body.Message != want {
		t.Errorf("expected %q, got %q", want, body.Message)
	}

	e, records, err := db.GetExperiment(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetExperiment failed: %v", err)
	}
	if e.Name != "Voo 1 revisado" || e.TargetDistance != 150 {
		t.Errorf("metadata not replaced: %+v", e)
	}
	if len(records) != 4 {
		t.Errorf("telemetry should be untouched, got %d records", len(records))
	}
}

func TestReplaceExperimentMultipart(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	var created createResponse
	decode(t, create(t, h, validFields(), "voo1.csv", telemetryCSV), &created)

	body, ct := multipartBody(t, validFields(), "", "")
	req := httptest.NewRequest(http.MethodPut, "/experimentos/"+itoa(created.ID), body)
	req.Header.Set("Content-Type", ct)
	if rec := do(t, h, req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReplaceExperimentNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	body, ct := multipartBody(t, validFields(), "", "")
	req := httptest.NewRequest(http.MethodPut, "/experimentos/42", body)
	req.Header.Set("Content-Type", ct)
	if rec := do(t, s.Handler(), req); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestReplaceExperimentInvalidInput(t *testing.T) {
	s, db := newTestServer(t)
	h := s.Handler()

	var created createResponse
	decode(t, create(t, h, validFields(), "voo1.csv", telemetryCSV), &created)

	fields := validFields()
	fields["massaTotalFoguete"] = "-1"
	body, ct := multipartBody(t, fields, "", "")
	req := httptest.NewRequest(http.MethodPut, "/experimentos/"+itoa(created.ID), body)
	req.Header.Set("Content-Type", ct)
	if rec := do(t, h, req); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	e, _, _ := db.GetExperiment(context.Background(), created.ID)
	if e.RocketMass != 0.35 {
		t.Errorf("rocket mass should be unchanged, got %v", e.RocketMass)
	}
}

func TestDeleteExperimentCascades(t *testing.T) {
	s, db := newTestServer(t)
	h := s.Handler()

	var created createResponse
	decode(t, create(t, h, validFields(), "voo1.csv", telemetryCSV), &created)

	rec := do(t, h, httptest.NewRequest(http.MethodDelete, "/experimentos/"+itoa(created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body messageResponse
	decode(t, rec, &body)
	if body.Message != "Experimento com ID "+itoa(created.ID)+" deletado com sucesso!" {
		t.Errorf("unexpected message %q", body.Message)
	}

	if _, _, err := db.GetExperiment(context.Background(), created.ID); err == nil {
		t.Error("expected experiment to be gone")
	}

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/experimentos/"+itoa(created.ID), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestDownloadCSV(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	var created createResponse
	decode(t, create(t, h, validFields(), "voo1.csv", telemetryCSV), &created)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/experimentos/download-csv/"+itoa(created.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Voo 1.csv") {
		t.Errorf("expected filename in Content-Disposition, got %q", cd)
	}

	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("download is not valid CSV: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(rows))
	}
	if rows[0][8] != "distancia" || rows[0][9] != "altura_lancamento" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][9] != "0" {
		t.Errorf("first launch height should be 0, got %q", rows[1][9])
	}
}

func TestDownloadCSVNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/experimentos/download-csv/7", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	s, db := newTestServer(t)
	s.cfg.Server.MaxUploadMB = 1

	big := telemetryCSV + strings.Repeat("10:00:05,0.1,0.1,9.5,22,-46.6,-23.5,771\n", 40000)
	rec := create(t, s.Handler(), validFields(), "grande.csv", big)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	list, _ := db.ListExperiments(context.Background())
	if len(list) != 0 {
		t.Errorf("expected no experiments, got %d", len(list))
	}
}

func TestStatusForMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{storage.ErrNotFound, http.StatusNotFound},
		{errBodyTooLarge, http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusFor(c.err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
