package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/dary/internal/batch"
	"github.com/opensource-finance/dary/internal/cache"
	"github.com/opensource-finance/dary/internal/domain"
	"github.com/opensource-finance/dary/internal/export"
	"github.com/opensource-finance/dary/internal/history"
	"github.com/opensource-finance/dary/internal/rules"
	"github.com/opensource-finance/dary/internal/scoring"
)

const villaJSON = `{
	"name": "Villa Premium",
	"propertyType": "villa",
	"condition": "new",
	"surfaceM2": 350,
	"zone": "premium",
	"amenityDistancesKm": {"schools": 1, "shops": 0.5, "transport": 0.3, "hospitals": 3},
	"projectedRoiPct": 18,
	"rentalYieldPct": 8,
	"entryTicket": 250000,
	"estimatedCapitalGainPct": 30,
	"futureDevelopmentPotential": "high",
	"developerReputation": "excellent",
	"marketLiquidity": "high",
	"guaranteesPresent": true
}`

// createTestServer creates a server with an in-memory history and the
// builtin screening rules.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := Config{
		Server: domain.ServerConfig{
			Host:           "localhost",
			Port:           8080,
			ReadTimeout:    30,
			WriteTimeout:   30,
			MaxUploadBytes: 1 << 20,
		},
		Version: "test-v1",
	}

	engine, err := rules.NewEngine(4)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if err := engine.LoadRules(rules.BuiltinRules()); err != nil {
		t.Fatalf("failed to load rules: %v", err)
	}

	c := cache.NewLRUCache(1000)
	return NewServer(cfg, Deps{
		Cache:   c,
		History: history.NewStore(c, domain.HistoryConfig{MaxEntries: 50, TTL: time.Hour}),
		Engine:  engine,
		Runner:  batch.NewRunner(domain.BatchConfig{Workers: 4, MaxRows: 100}, engine),
		Screens: func() ([]*domain.ScreenRule, error) { return rules.BuiltinRules(), nil },
	})
}

func do(server *Server, method, path, session, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.Header.Set(SessionIDHeader, session)
	}
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestEvaluateEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulEvaluation", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", villaJSON)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var result domain.GlobalScoreResult
		if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if result.ID == "" {
			t.Error("expected evaluation ID")
		}
		if result.ProjectName != "Villa Premium" {
			t.Errorf("expected project name, got %q", result.ProjectName)
		}
		if result.Tier != domain.TierExcellent {
			t.Errorf("expected Excellent tier, got %s (%.1f)", result.Tier, result.ScoreGlobal)
		}
		if len(result.Flags) != 0 {
			t.Errorf("expected no flags, got %+v", result.Flags)
		}
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("MatchesEngine", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", `{"name":"Bare"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var result domain.GlobalScoreResult
		_ = json.Unmarshal(rr.Body.Bytes(), &result)

		in := domain.DefaultProjectInput()
		in.Name = "Bare"
		want := scoring.Evaluate(in)
		if result.ScoreGlobal != want.ScoreGlobal {
			t.Errorf("expected %.1f, got %.1f", want.ScoreGlobal, result.ScoreGlobal)
		}
	})

	t.Run("ScreeningFlags", func(t *testing.T) {
		body := `{"name":"Studio","condition":"off-plan","developerReputation":"low","entryTicket":500000,"marketLiquidity":"low"}`
		rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", body)

		var result domain.GlobalScoreResult
		_ = json.Unmarshal(rr.Body.Bytes(), &result)

		ids := map[string]bool{}
		for _, f := range result.Flags {
			ids[f.RuleID] = true
		}
		for _, want := range []string{"offplan-weak-developer", "no-guarantee-large-ticket", "illiquid-exit"} {
			if !ids[want] {
				t.Errorf("expected flag %s, got %+v", want, result.Flags)
			}
		}
	})

	t.Run("UnrecognizedValueWarns", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", `{"zone":"lunar"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var result domain.GlobalScoreResult
		_ = json.Unmarshal(rr.Body.Bytes(), &result)
		if len(result.Warnings) != 1 {
			t.Errorf("expected 1 warning, got %v", result.Warnings)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", `{"entryTicket":"abc"}`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}

		var resp ValidationErrorResponse
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Field != domain.FieldEntryTicket {
			t.Errorf("expected field entryTicket, got %q", resp.Field)
		}
		if resp.Value != "abc" {
			t.Errorf("expected value abc, got %q", resp.Value)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", "not json")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("MissingSessionID", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/evaluate", "", "application/json", villaJSON)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestBatchEndpoint(t *testing.T) {
	server := createTestServer(t)

	csvBody := "name,propertyType,entryTicket,projectedRoiPct\n" +
		"Alpha,villa,10000,15\n" +
		"Broken,apartment,abc,5\n" +
		"Gamma,studio,500000,2\n"

	t.Run("JSONReport", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/batch", "batch-session", "text/csv", csvBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var report batch.Report
		if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
			t.Fatalf("failed to decode report: %v", err)
		}
		if report.Count != 3 || report.Succeeded != 2 || report.Failed != 1 {
			t.Errorf("unexpected counts: %+v", report)
		}
		if report.Outcomes[1].Error == nil || report.Outcomes[1].Error.Row != 2 {
			t.Errorf("expected row 2 error, got %+v", report.Outcomes[1])
		}
		if report.Outcomes[2].Name != "Gamma" {
			t.Errorf("expected input order, got %q", report.Outcomes[2].Name)
		}
	})

	t.Run("HistoryKeepsOrder", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/history", "batch-session", "", "")
		var resp struct {
			Count       int                         `json:"count"`
			Evaluations []*domain.GlobalScoreResult `json:"evaluations"`
		}
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 2 {
			t.Fatalf("expected 2 history entries, got %d", resp.Count)
		}
		if resp.Evaluations[0].ProjectName != "Alpha" || resp.Evaluations[1].ProjectName != "Gamma" {
			t.Errorf("unexpected history order: %s, %s", resp.Evaluations[0].ProjectName, resp.Evaluations[1].ProjectName)
		}
	})

	t.Run("CSVReport", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/batch?format=csv", "csv-session", "text/csv", csvBody)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
			t.Errorf("expected text/csv, got %s", rr.Header().Get("Content-Type"))
		}

		rows, err := csv.NewReader(rr.Body).ReadAll()
		if err != nil {
			t.Fatalf("failed to read csv: %v", err)
		}
		if len(rows) != 4 {
			t.Fatalf("expected header + 3 rows, got %d", len(rows))
		}
		if strings.Join(rows[0], ",") != strings.Join(export.BatchColumns, ",") {
			t.Errorf("unexpected header: %v", rows[0])
		}
		if rows[2][8] == "" {
			t.Error("expected error column for broken row")
		}
	})

	t.Run("JSONBody", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/batch", "json-session", "application/json", `[{"name":"A"},{"name":"B"}]`)
		var report batch.Report
		_ = json.Unmarshal(rr.Body.Bytes(), &report)
		if report.Count != 2 || report.Succeeded != 2 {
			t.Errorf("unexpected report: %+v", report)
		}
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/batch", "empty-session", "text/csv", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var report batch.Report
		_ = json.Unmarshal(rr.Body.Bytes(), &report)
		if report.Count != 0 {
			t.Errorf("expected empty report, got %+v", report)
		}
	})

	t.Run("UnreadableBody", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/batch", "bad-session", "application/json", `{"name":"not an array"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestHistoryAndExport(t *testing.T) {
	server := createTestServer(t)

	rr := do(server, http.MethodPost, "/evaluate", "session-001", "application/json", villaJSON)
	var result domain.GlobalScoreResult
	_ = json.Unmarshal(rr.Body.Bytes(), &result)

	t.Run("GetEvaluation", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/evaluations/"+result.ID, "session-001", "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("OtherSessionNotFound", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/evaluations/"+result.ID, "session-002", "", "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("ExportFormats", func(t *testing.T) {
		tests := map[string]string{
			"json": "application/json",
			"csv":  "text/csv",
			"html": "text/html",
			"pdf":  "application/pdf",
		}
		for format, contentType := range tests {
			rr := do(server, http.MethodGet, "/evaluations/"+result.ID+"/export?format="+format, "session-001", "", "")
			if rr.Code != http.StatusOK {
				t.Errorf("%s: expected status 200, got %d", format, rr.Code)
				continue
			}
			if !strings.HasPrefix(rr.Header().Get("Content-Type"), contentType) {
				t.Errorf("%s: expected %s, got %s", format, contentType, rr.Header().Get("Content-Type"))
			}
			if !strings.Contains(rr.Header().Get("Content-Disposition"), "attachment") {
				t.Errorf("%s: expected attachment disposition", format)
			}
		}
	})

	t.Run("ExportUnknownFormat", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/evaluations/"+result.ID+"/export?format=xlsx", "session-001", "", "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ClearHistory", func(t *testing.T) {
		rr := do(server, http.MethodDelete, "/history", "session-001", "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		rr = do(server, http.MethodGet, "/evaluations/"+result.ID, "session-001", "", "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 after clear, got %d", rr.Code)
		}
	})
}

func TestScreensEndpoints(t *testing.T) {
	server := createTestServer(t)
	builtin := len(rules.BuiltinRules())

	t.Run("ListScreens", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/screens", "admin", "", "")
		var resp struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != builtin {
			t.Errorf("expected %d screens, got %d", builtin, resp.Count)
		}
	})

	t.Run("CreateScreen", func(t *testing.T) {
		body, _ := json.Marshal(domain.ScreenRule{
			ID:         "tiny-surface",
			Name:       "Tiny surface",
			Expression: "surface < 20.0",
			Severity:   domain.SeverityInfo,
			Enabled:    true,
		})
		rr := do(server, http.MethodPost, "/screens", "admin", "application/json", string(body))
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
		if server.Handler().engine.RulesCount() != builtin+1 {
			t.Errorf("expected rule to be applied immediately")
		}
	})

	t.Run("CreateInvalidExpression", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/screens", "admin", "application/json",
			`{"id":"bad","name":"Bad","expression":"surface +","enabled":true}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("CreateMissingFields", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/screens", "admin", "application/json", `{"id":"x"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ReloadKeepsCreated", func(t *testing.T) {
		rr := do(server, http.MethodPost, "/screens/reload", "admin", "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if server.Handler().engine.RulesCount() != builtin+1 {
			t.Errorf("expected %d rules after reload, got %d", builtin+1, server.Handler().engine.RulesCount())
		}
	})
}

func TestCriteriaEndpoint(t *testing.T) {
	server := createTestServer(t)

	rr := do(server, http.MethodGet, "/criteria", "session-001", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var grid scoring.Grid
	if err := json.Unmarshal(rr.Body.Bytes(), &grid); err != nil {
		t.Fatalf("failed to decode grid: %v", err)
	}
	if len(grid.Categories) != 4 || len(grid.Tiers) != 4 {
		t.Errorf("unexpected grid shape: %d categories, %d tiers", len(grid.Categories), len(grid.Tiers))
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t)

	rr := do(server, http.MethodGet, "/health", "", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy, got %s", resp["status"])
	}
	if resp["version"] != "test-v1" {
		t.Errorf("expected version test-v1, got %s", resp["version"])
	}

	rr = do(server, http.MethodGet, "/ready", "", "", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/evaluate", bytes.NewReader(nil))
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)

	if rr.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected Access-Control-Allow-Origin header")
	}
}
