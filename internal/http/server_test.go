package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jangbu/internal/services"
	"jangbu/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	service := services.NewLedgerService(store.New(), nil, nil, nil)
	srv := NewServer(":0", service)
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func newTx(date, direction, category, counterparty string, amount int64) map[string]any {
	return map[string]any{
		"date":         date,
		"direction":    direction,
		"fundType":     "일반재정",
		"category":     category,
		"counterparty": counterparty,
		"amount":       amount,
	}
}

type transactionList struct {
	Transactions []transactionPayload `json:"transactions"`
	Count        int                  `json:"count"`
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s returned %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions",
		newTx("2025-03-02", "income", "십일조", "김철수", 50000))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[transactionPayload](t, rec)
	if created.ID == "" {
		t.Error("expected an assigned transaction ID")
	}
	if created.Amount != 50000 {
		t.Errorf("created amount = %d, want 50000", created.Amount)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?year=2025", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list returned %d: %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[transactionList](t, rec)
	if list.Count != 1 {
		t.Fatalf("list count = %d, want 1", list.Count)
	}
	if list.Transactions[0].ID != created.ID {
		t.Errorf("listed ID = %s, want %s", list.Transactions[0].ID, created.ID)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?year=2024", nil)
	list = decodeBody[transactionList](t, rec)
	if list.Count != 0 {
		t.Errorf("2024 list count = %d, want 0", list.Count)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions",
		newTx("2025-03-02", "sideways", "십일조", "김철수", 50000))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid direction returned %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader("{not json"))
	got := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(got, req)
	if got.Code != http.StatusBadRequest {
		t.Errorf("malformed body returned %d, want %d", got.Code, http.StatusBadRequest)
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/transactions",
		newTx("2025-03-02", "income", "십일조", "김철수", 50000))
	created := decodeBody[transactionPayload](t, rec)

	updated := newTx("2025-03-02", "income", "십일조", "김철수", 70000)
	rec = doRequest(t, srv, http.MethodPut, "/api/transactions/"+created.ID, updated)
	if rec.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?year=2025", nil)
	list := decodeBody[transactionList](t, rec)
	if list.Transactions[0].Amount != 70000 {
		t.Errorf("amount after update = %d, want 70000", list.Transactions[0].Amount)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete returned %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestBulkAddIsOneUndoStep(t *testing.T) {
	srv := newTestServer(t)

	batch := []map[string]any{
		newTx("2025-03-02", "income", "십일조", "김철수", 50000),
		newTx("2025-03-02", "income", "주일헌금", "이영희", 30000),
		newTx("2025-03-09", "expense", "운영비", "관리사무소", 20000),
	}
	rec := doRequest(t, srv, http.MethodPost, "/api/transactions/bulk", batch)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bulk add returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("undo returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?year=2025", nil)
	list := decodeBody[transactionList](t, rec)
	if list.Count != 0 {
		t.Errorf("count after undoing bulk add = %d, want 0", list.Count)
	}
}

func TestUndoWithoutHistory(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/undo", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("undo on fresh ledger returned %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestChosungSearch(t *testing.T) {
	srv := newTestServer(t)

	batch := []map[string]any{
		newTx("2025-03-02", "income", "십일조", "김철수", 50000),
		newTx("2025-03-02", "income", "십일조", "이영희", 30000),
	}
	doRequest(t, srv, http.MethodPost, "/api/transactions/bulk", batch)

	rec := doRequest(t, srv, http.MethodGet, "/api/transactions?year=2025&q=ㄱㅊㅅ", nil)
	list := decodeBody[transactionList](t, rec)
	if list.Count != 1 {
		t.Fatalf("chosung search count = %d, want 1", list.Count)
	}
	if list.Transactions[0].Counterparty != "김철수" {
		t.Errorf("chosung search matched %s, want 김철수", list.Transactions[0].Counterparty)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/transactions?year=2025&q=영희", nil)
	list = decodeBody[transactionList](t, rec)
	if list.Count != 1 || list.Transactions[0].Counterparty != "이영희" {
		t.Errorf("substring search returned %+v, want 이영희 only", list.Transactions)
	}
}

func TestDashboardSums(t *testing.T) {
	srv := newTestServer(t)

	batch := []map[string]any{
		newTx("2025-01-05", "income", "일반이월금", "전년도", 100000),
		newTx("2025-03-02", "income", "십일조", "김철수", 50000),
		newTx("2025-03-09", "expense", "운영비", "관리사무소", 30000),
	}
	doRequest(t, srv, http.MethodPost, "/api/transactions/bulk", batch)

	rec := doRequest(t, srv, http.MethodGet, "/api/dashboard?year=2025", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Sums map[string]int64 `json:"sums"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}

	want := map[string]int64{
		"income":     150000,
		"expense":    30000,
		"carryover":  100000,
		"pureIncome": 50000,
		"balance":    120000,
	}
	for key, value := range want {
		if resp.Sums[key] != value {
			t.Errorf("sums[%s] = %d, want %d", key, resp.Sums[key], value)
		}
	}
}

func TestDashboardCacheTracksRevision(t *testing.T) {
	srv := newTestServer(t)

	doRequest(t, srv, http.MethodPost, "/api/transactions",
		newTx("2025-03-02", "income", "십일조", "김철수", 50000))

	readIncome := func() int64 {
		rec := doRequest(t, srv, http.MethodGet, "/api/dashboard?year=2025", nil)
		var resp struct {
			Sums map[string]int64 `json:"sums"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode dashboard: %v", err)
		}
		return resp.Sums["income"]
	}

	if got := readIncome(); got != 50000 {
		t.Fatalf("income before mutation = %d, want 50000", got)
	}

	// A second mutation bumps the revision, so the cached entry for the
	// old revision must not be served.
	doRequest(t, srv, http.MethodPost, "/api/transactions",
		newTx("2025-03-09", "income", "주일헌금", "이영희", 30000))

	if got := readIncome(); got != 80000 {
		t.Errorf("income after mutation = %d, want 80000", got)
	}
}

func TestCategories(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/categories", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("categories returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]struct {
		Income    []string `json:"income"`
		Expense   []string `json:"expense"`
		Carryover string   `json:"carryover"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode categories: %v", err)
	}

	general := resp["general"]
	if general.Carryover != "일반이월금" {
		t.Errorf("general carryover = %s, want 일반이월금", general.Carryover)
	}
	found := false
	for _, c := range general.Income {
		if c == "십일조" {
			found = true
		}
	}
	if !found {
		t.Errorf("general income categories %v missing 십일조", general.Income)
	}
	if resp["special"].Carryover != "특별이월금" {
		t.Errorf("special carryover = %s, want 특별이월금", resp["special"].Carryover)
	}
}

func TestBudgetReport(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPut, "/api/budgets",
		map[string]any{"category": "운영비", "amount": 100000})
	if rec.Code != http.StatusOK {
		t.Fatalf("set budget returned %d: %s", rec.Code, rec.Body.String())
	}

	doRequest(t, srv, http.MethodPost, "/api/transactions",
		newTx("2025-03-09", "expense", "운영비", "관리사무소", 120000))

	rec = doRequest(t, srv, http.MethodGet, "/api/budgets/report?year=2025", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("budget report returned %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Year      int    `json:"year"`
		Direction string `json:"direction"`
		Funds     map[string]struct {
			Lines    []budgetLinePayload `json:"lines"`
			Subtotal struct {
				Budget int64        `json:"budget"`
				Actual int64        `json:"actual"`
				Ratio  ratioPayload `json:"ratio"`
			} `json:"subtotal"`
		} `json:"funds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode budget report: %v", err)
	}
	if resp.Year != 2025 || resp.Direction != "expense" {
		t.Errorf("report header = %d/%s, want 2025/expense", resp.Year, resp.Direction)
	}

	general := resp.Funds["general"]
	var line *budgetLinePayload
	for i := range general.Lines {
		if general.Lines[i].Category == "운영비" {
			line = &general.Lines[i]
			break
		}
	}
	if line == nil {
		t.Fatalf("운영비 missing from general lines: %+v", general.Lines)
	}
	if line.Budget != 100000 || line.Actual != 120000 {
		t.Errorf("운영비 = budget %d actual %d, want 100000/120000", line.Budget, line.Actual)
	}
	if !line.Ratio.Valid || line.Ratio.Percent != 120 {
		t.Errorf("운영비 ratio = %+v, want valid 120%%", line.Ratio)
	}
	if !line.OverBudget {
		t.Error("운영비 should be flagged over budget")
	}

	for _, l := range general.Lines {
		if l.Category != "운영비" && l.Ratio.Valid {
			t.Errorf("unbudgeted category %s has a valid ratio", l.Category)
		}
	}

	if general.Subtotal.Budget != 100000 || general.Subtotal.Actual != 120000 {
		t.Errorf("general subtotal = %d/%d, want 100000/120000",
			general.Subtotal.Budget, general.Subtotal.Actual)
	}
	if !general.Subtotal.Ratio.Valid || general.Subtotal.Ratio.Percent != 120 {
		t.Errorf("general subtotal ratio = %+v, want valid 120%%", general.Subtotal.Ratio)
	}
}

func TestDonorEndpoints(t *testing.T) {
	srv := newTestServer(t)

	batch := []map[string]any{
		newTx("2025-03-02", "income", "십일조", "김철수", 50000),
		newTx("2025-04-06", "income", "감사헌금", "김철수", 30000),
		newTx("2025-03-02", "income", "십일조", "이영희", 20000),
		newTx("2024-12-01", "income", "십일조", "김철수", 99999),
	}
	doRequest(t, srv, http.MethodPost, "/api/transactions/bulk", batch)

	rec := doRequest(t, srv, http.MethodGet, "/api/donors", nil)
	donors := decodeBody[struct {
		Donors []string `json:"donors"`
		Count  int      `json:"count"`
	}](t, rec)
	if donors.Count != 2 {
		t.Fatalf("donor count = %d, want 2: %v", donors.Count, donors.Donors)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/donors?q=ㄱㅊㅅ", nil)
	filtered := decodeBody[struct {
		Donors []string `json:"donors"`
	}](t, rec)
	if len(filtered.Donors) != 1 || filtered.Donors[0] != "김철수" {
		t.Errorf("donor search = %v, want [김철수]", filtered.Donors)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/donors/김철수/receipts?year=2025", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipts returned %d: %s", rec.Code, rec.Body.String())
	}
	receipts := decodeBody[struct {
		Donor        string               `json:"donor"`
		Year         int                  `json:"year"`
		Transactions []transactionPayload `json:"transactions"`
		Total        int64                `json:"total"`
	}](t, rec)
	if receipts.Donor != "김철수" || receipts.Year != 2025 {
		t.Errorf("receipts header = %s/%d, want 김철수/2025", receipts.Donor, receipts.Year)
	}
	if len(receipts.Transactions) != 2 || receipts.Total != 80000 {
		t.Errorf("receipts = %d transactions totaling %d, want 2 totaling 80000",
			len(receipts.Transactions), receipts.Total)
	}

	rec = doRequest(t, srv, http.MethodDelete, "/api/donors/이영희", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("donor delete returned %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	source := newTestServer(t)

	batch := []map[string]any{
		newTx("2025-03-02", "income", "십일조", "김철수", 50000),
		newTx("2025-03-09", "expense", "운영비", "관리사무소", 30000),
	}
	doRequest(t, source, http.MethodPost, "/api/transactions/bulk", batch)
	doRequest(t, source, http.MethodPut, "/api/budgets",
		map[string]any{"category": "운영비", "amount": 100000})

	rec := doRequest(t, source, http.MethodGet, "/api/settings/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export returned %d: %s", rec.Code, rec.Body.String())
	}
	exported := rec.Body.Bytes()

	target := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/settings/import", bytes.NewReader(exported))
	got := httptest.NewRecorder()
	target.Server.Handler.ServeHTTP(got, req)
	if got.Code != http.StatusOK {
		t.Fatalf("import returned %d: %s", got.Code, got.Body.String())
	}

	counts := decodeBody[map[string]int](t, got)
	if counts["transactions"] != 2 || counts["budgets"] != 1 {
		t.Errorf("import counts = %v, want 2 transactions and 1 budget", counts)
	}

	rec = doRequest(t, target, http.MethodGet, "/api/transactions?year=2025", nil)
	list := decodeBody[transactionList](t, rec)
	if list.Count != 2 {
		t.Errorf("imported transaction count = %d, want 2", list.Count)
	}
}

func TestImportRejectsMalformedDocument(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/settings/import", strings.NewReader("not a document"))
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed import returned %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSyncWithoutPublisher(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/sync", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("sync without a broker returned %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/transactions"},
		{http.MethodGet, "/api/transactions/bulk"},
		{http.MethodGet, "/api/undo"},
		{http.MethodPost, "/api/dashboard"},
		{http.MethodPost, "/api/categories"},
		{http.MethodPost, "/api/budgets"},
		{http.MethodPut, "/api/budgets/report"},
		{http.MethodPut, "/api/donors"},
		{http.MethodPost, "/api/settings/export"},
		{http.MethodGet, "/api/settings/import"},
		{http.MethodGet, "/api/sync"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := doRequest(t, srv, tt.method, tt.path, nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("returned %d, want %d", rec.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}

func TestRateLimiterBlocksBurst(t *testing.T) {
	srv := newTestServer(t)

	// httptest requests share a RemoteAddr, so they count as one client.
	var last int
	for i := 0; i < 61; i++ {
		rec := doRequest(t, srv, http.MethodPost, "/api/sync", nil)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("61st mutation returned %d, want %d", last, http.StatusTooManyRequests)
	}

	// Reads are never rate limited.
	rec := doRequest(t, srv, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("GET after burst returned %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestPeriodFromQuery(t *testing.T) {
	tests := []struct {
		name            string
		query           string
		wantGranularity string
	}{
		{"day implies daily", "year=2025&month=3&day=2", "daily"},
		{"month implies monthly", "year=2025&month=3", "monthly"},
		{"year implies yearly", "year=2025", "yearly"},
		{"explicit granularity wins", "year=2025&granularity=monthly", "monthly"},
		{"no parameters mean everything", "", "all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/transactions?%s", tt.query), nil)
			_, granularity := periodFromQuery(r)
			if string(granularity) != tt.wantGranularity {
				t.Errorf("granularity = %s, want %s", granularity, tt.wantGranularity)
			}
		})
	}
}
