package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opsec-k9/backend/media"
	middleware "github.com/opsec-k9/backend/middlewares"
	"github.com/opsec-k9/backend/models"
	"github.com/opsec-k9/backend/store"
	"github.com/opsec-k9/backend/workflow"
)

const testSecret = "test_secret"

type testServer struct {
	mux     *http.ServeMux
	store   *store.Memory
	site    models.Site
	admin   string // bearer tokens
	trainer string
	handler string
}

func tokenFor(t *testing.T, p models.Principal) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": p.UserID,
		"role":    string(p.Role),
		"exp":     time.Now().Add(time.Hour).Unix(),
		"iat":     time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

// setupTestServer wires the mux the same way main does, over a fresh
// in-memory store.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	mem := store.NewMemory()
	site := mem.AddSite(models.Site{Name: "OPSEC Training Yard", Lat: 40.0, Lon: -86.0, RadiusMeters: 500})
	mem.AddK9(models.K9{Name: "Rex", Breed: "German Shepherd", Status: models.K9Active})

	uploads, err := media.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("media.NewStore failed: %v", err)
	}

	engine := workflow.NewEngine(mem)
	trainingLog := workflow.NewTrainingLog(mem)

	auth := middleware.AuthJWT(testSecret)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", Hello)
	mux.HandleFunc("GET /ping", Ping)
	mux.Handle("POST /auth/login", Login(mem, testSecret))
	mux.Handle("GET /me", auth(Me(mem)))
	mux.Handle("POST /users", auth(adminOnly(CreateUser(mem))))
	mux.Handle("POST /time/clock-in", auth(ClockIn(engine, uploads)))
	mux.Handle("GET /time/pending", auth(ListPending(engine)))
	mux.Handle("GET /time/logs", auth(ReportTimeLogs(engine)))
	mux.Handle("POST /time/approve/{id}", auth(Approve(engine)))
	mux.Handle("POST /time/reject/{id}", auth(Reject(engine)))
	mux.Handle("POST /training-sessions", auth(CreateTraining(trainingLog)))
	mux.Handle("GET /training-sessions", auth(ListTraining(trainingLog)))
	mux.Handle("GET /k9s", auth(ListK9s(mem)))
	mux.Handle("GET /k9s/{id}", auth(GetK9(mem)))
	mux.Handle("POST /k9s/{id}/vaccinations", auth(AddVaccination(mem, uploads)))
	mux.Handle("GET /vaccinations/upcoming", auth(UpcomingVaccinations(mem)))
	mux.Handle("POST /sites/nearest", auth(NearestSite(mem)))

	return &testServer{
		mux:     mux,
		store:   mem,
		site:    site,
		admin:   tokenFor(t, models.Principal{UserID: "admin-1", Role: models.RoleAdmin}),
		trainer: tokenFor(t, models.Principal{UserID: "trainer-1", Role: models.RoleTrainer}),
		handler: tokenFor(t, models.Principal{UserID: "handler-1", Role: models.RoleHandler}),
	}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(b)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

func TestClockInAtSiteCenter(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/time/clock-in", ts.handler, map[string]any{
		"lat": 40.0, "lon": -86.0, "siteId": ts.site.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		OK     bool                    `json:"ok"`
		ID     int64                   `json:"id"`
		Record models.AttendanceRecord `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.OK || resp.ID == 0 {
		t.Errorf("Unexpected response: %s", w.Body.String())
	}
	if !resp.Record.InsideGeofence {
		t.Error("Expected inside geofence at site center")
	}
	if resp.Record.ApprovalState != models.ApprovalPending {
		t.Errorf("Expected pending, got %s", resp.Record.ApprovalState)
	}
	if resp.Record.UserID != "handler-1" {
		t.Errorf("Expected user from token, got %s", resp.Record.UserID)
	}
	if resp.Record.JobCode != "Training" {
		t.Errorf("Expected default job code, got %q", resp.Record.JobCode)
	}
}

func TestClockInOutsideFenceIsStored(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/time/clock-in", ts.handler, map[string]any{
		"lat": 41.0, "lon": -86.0, "siteId": ts.site.ID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"inside_geofence":false`) {
		t.Errorf("Expected inside_geofence false: %s", w.Body.String())
	}
}

func TestClockInValidation(t *testing.T) {
	ts := setupTestServer(t)

	// missing lat
	w := ts.do(t, "POST", "/time/clock-in", ts.handler, map[string]any{
		"lon": -86.0, "siteId": ts.site.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing lat, got %d", w.Code)
	}

	// out-of-range lat
	w = ts.do(t, "POST", "/time/clock-in", ts.handler, map[string]any{
		"lat": 123.0, "lon": -86.0, "siteId": ts.site.ID,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad lat, got %d", w.Code)
	}

	// unknown site
	w = ts.do(t, "POST", "/time/clock-in", ts.handler, map[string]any{
		"lat": 40.0, "lon": -86.0, "siteId": 777,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown site, got %d", w.Code)
	}

	// no token
	w = ts.do(t, "POST", "/time/clock-in", "", map[string]any{
		"lat": 40.0, "lon": -86.0, "siteId": ts.site.ID,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", w.Code)
	}
}

func TestClockInMultipartWithSelfie(t *testing.T) {
	ts := setupTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("lat", "40.0")
	mw.WriteField("lon", "-86.0")
	mw.WriteField("siteId", fmt.Sprint(ts.site.ID))
	mw.WriteField("jobCode", "Patrol")
	fw, _ := mw.CreateFormFile("selfie", "selfie.jpg")
	fw.Write([]byte("fake jpeg"))
	mw.Close()

	req := httptest.NewRequest("POST", "/time/clock-in", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.handler)
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Record models.AttendanceRecord `json:"record"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Record.Selfie == "" {
		t.Error("Expected a selfie ref on the stored record")
	}
	if resp.Record.JobCode != "Patrol" {
		t.Errorf("Expected Patrol job code, got %q", resp.Record.JobCode)
	}
}

func TestPendingRequiresAdmin(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/time/pending", ts.handler, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for handler, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/time/pending", ts.admin, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin, got %d", w.Code)
	}
}

func TestApprovalLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/time/clock-in", ts.trainer, map[string]any{
		"lat": 40.0, "lon": -86.0, "siteId": ts.site.ID,
	})
	var created struct {
		ID int64 `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)

	// visible in the pending queue
	w = ts.do(t, "GET", "/time/pending", ts.admin, nil)
	var pending []models.AttendanceRecord
	json.Unmarshal(w.Body.Bytes(), &pending)
	if len(pending) != 1 || pending[0].ID != created.ID {
		t.Fatalf("Expected one pending record %d, got %v", created.ID, pending)
	}

	// non-admin cannot approve
	w = ts.do(t, "POST", fmt.Sprintf("/time/approve/%d", created.ID), ts.trainer, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for trainer approve, got %d", w.Code)
	}

	// admin approve succeeds once
	w = ts.do(t, "POST", fmt.Sprintf("/time/approve/%d", created.ID), ts.admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 approve, got %d: %s", w.Code, w.Body.String())
	}

	// retry is a conflict, as is reject after approve
	w = ts.do(t, "POST", fmt.Sprintf("/time/approve/%d", created.ID), ts.admin, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on approve retry, got %d", w.Code)
	}
	w = ts.do(t, "POST", fmt.Sprintf("/time/reject/%d", created.ID), ts.admin, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 on reject after approve, got %d", w.Code)
	}

	// unknown id
	w = ts.do(t, "POST", "/time/approve/999", ts.admin, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown id, got %d", w.Code)
	}

	// the queue is empty again
	w = ts.do(t, "GET", "/time/pending", ts.admin, nil)
	json.Unmarshal(w.Body.Bytes(), &pending)
	if len(pending) != 0 {
		t.Errorf("Expected empty pending queue, got %v", pending)
	}
}

func TestTimeLogsReport(t *testing.T) {
	ts := setupTestServer(t)

	for i := 0; i < 3; i++ {
		ts.do(t, "POST", "/time/clock-in", ts.handler, map[string]any{
			"lat": 40.0, "lon": -86.0, "siteId": ts.site.ID,
		})
	}
	ts.do(t, "POST", "/time/approve/1", ts.admin, nil)

	w := ts.do(t, "GET", "/time/logs?state=approved", ts.admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []models.AttendanceRecord `json:"items"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Items) != 1 || resp.Items[0].ApprovalState != models.ApprovalApproved {
		t.Errorf("Expected one approved item, got %v", resp.Items)
	}

	w = ts.do(t, "GET", "/time/logs?state=bogus", ts.admin, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad state, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/time/logs", ts.handler, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for handler, got %d", w.Code)
	}
}

func TestTrainingSessions(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "POST", "/training-sessions", ts.trainer, map[string]any{
		"k9_id": 1, "discipline": "Obedience", "area": "Yard A", "duration_minutes": 45,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Errorf("Unexpected response: %s", w.Body.String())
	}

	// missing k9_id
	w = ts.do(t, "POST", "/training-sessions", ts.trainer, map[string]any{"discipline": "Tracking"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without k9_id, got %d", w.Code)
	}

	// any authenticated role can read
	w = ts.do(t, "GET", "/training-sessions", ts.handler, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var sessions []models.TrainingSession
	json.Unmarshal(w.Body.Bytes(), &sessions)
	if len(sessions) != 1 || sessions[0].SubmittedBy != "trainer-1" {
		t.Errorf("Unexpected sessions: %v", sessions)
	}
}

func TestK9sAndVaccinations(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/k9s", ts.handler, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var k9s []models.K9
	json.Unmarshal(w.Body.Bytes(), &k9s)
	if len(k9s) != 1 || k9s[0].Name != "Rex" {
		t.Errorf("Unexpected k9s: %v", k9s)
	}

	w = ts.do(t, "GET", "/k9s/99", ts.handler, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown k9, got %d", w.Code)
	}

	// type and expires required
	w = ts.do(t, "POST", "/k9s/1/vaccinations", ts.trainer, map[string]any{"type": "Rabies"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without expires, got %d", w.Code)
	}

	soon := time.Now().Add(10 * 24 * time.Hour).Format("2006-01-02")
	w = ts.do(t, "POST", "/k9s/1/vaccinations", ts.trainer, map[string]any{"type": "Rabies", "expires": soon})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	far := time.Now().Add(300 * 24 * time.Hour).Format("2006-01-02")
	w = ts.do(t, "POST", "/k9s/1/vaccinations", ts.trainer, map[string]any{"type": "DHPP", "expires": far})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "GET", "/vaccinations/upcoming", ts.admin, nil)
	var due []models.Vaccination
	json.Unmarshal(w.Body.Bytes(), &due)
	if len(due) != 1 || due[0].Type != "Rabies" {
		t.Errorf("Expected only Rabies due soon, got %v", due)
	}
}

func TestNearestSite(t *testing.T) {
	ts := setupTestServer(t)
	ts.store.AddSite(models.Site{Name: "North Annex", Lat: 41.0, Lon: -86.0, RadiusMeters: 300})

	w := ts.do(t, "POST", "/sites/nearest", ts.handler, map[string]any{"lat": 40.1, "lon": -86.0})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Site           models.Site `json:"site"`
		DistanceMeters float64     `json:"distance_meters"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Site.Name != "OPSEC Training Yard" {
		t.Errorf("Expected the yard to be nearest, got %s", resp.Site.Name)
	}
	// 0.1 deg latitude is ~11.1km
	if resp.DistanceMeters < 10500 || resp.DistanceMeters > 11700 {
		t.Errorf("Expected ~11.1km, got %v", resp.DistanceMeters)
	}
}

func TestLoginAndMe(t *testing.T) {
	ts := setupTestServer(t)
	if err := store.SeedDemo(ts.store); err != nil {
		t.Fatalf("SeedDemo failed: %v", err)
	}

	w := ts.do(t, "POST", "/auth/login", "", map[string]any{
		"email": "handler@opsec.local", "password": "password123",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 login, got %d: %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Token == "" || resp.User.Role != models.RoleHandler {
		t.Errorf("Unexpected login response: %s", w.Body.String())
	}

	w = ts.do(t, "POST", "/auth/login", "", map[string]any{
		"email": "handler@opsec.local", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad password, got %d", w.Code)
	}

	w = ts.do(t, "GET", "/me", resp.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for /me, got %d: %s", w.Code, w.Body.String())
	}
	var me models.User
	json.Unmarshal(w.Body.Bytes(), &me)
	if me.Email != "handler@opsec.local" {
		t.Errorf("Unexpected /me response: %s", w.Body.String())
	}
}

func TestCreateUserAdminGate(t *testing.T) {
	ts := setupTestServer(t)

	newUser := map[string]any{
		"name": "Handler Two", "email": "handler2@opsec.local",
		"password": "hunter22", "role": "handler",
	}

	w := ts.do(t, "POST", "/users", ts.handler, newUser)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for handler, got %d", w.Code)
	}

	w = ts.do(t, "POST", "/users", ts.admin, newUser)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "hunter22") {
		t.Error("Password material leaked in response")
	}

	// duplicate email
	w = ts.do(t, "POST", "/users", ts.admin, newUser)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", w.Code)
	}
}

func TestHealthRoutes(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, "GET", "/", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for /, got %d", w.Code)
	}
	w = ts.do(t, "GET", "/ping", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("Unexpected ping response %d: %s", w.Code, w.Body.String())
	}
}
