package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	config "github.com/aicert/cert_platform/configs"
	"github.com/aicert/cert_platform/database"
	"github.com/aicert/cert_platform/handlers"
	"github.com/aicert/cert_platform/llm"
	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/models"
	"github.com/aicert/cert_platform/notifications"
	"github.com/aicert/cert_platform/services"
	"github.com/aicert/cert_platform/storage"
	"github.com/aicert/cert_platform/websocket"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const parsedResponse = `{"questions":[{"question_text":"Which port does HTTPS use?","options":[
{"option_text":"21","is_correct":false},{"option_text":"80","is_correct":false},
{"option_text":"443","is_correct":true},{"option_text":"8080","is_correct":false}]}]}`

type stubCompleter struct {
	enabled  bool
	response string
}

func (s stubCompleter) Enabled() bool { return s.enabled }

func (s stubCompleter) Complete(context.Context, llm.Request) (string, error) {
	if !s.enabled {
		return "", llm.ErrDisabled
	}
	return s.response, nil
}

type stubExtractor struct{ text string }

func (s stubExtractor) Extract(context.Context, string) (string, error) { return s.text, nil }

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
	dir string
}

func newTestEnv(t *testing.T, completer llm.Completer) *testEnv {
	t.Helper()
	db, err := database.Open("sqlite://file::memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	settings := config.Settings{
		JWTSecret:           "test-secret",
		TokenExpireMinutes:  30,
		AdminPassword:       "1234",
		TestAccountsEnabled: true,
		MaxUploadBytes:      1 << 20,
		LLMTemperature:      0.3,
	}
	if err := database.SeedAccounts(db, settings); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	uploads, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatal(err)
	}
	pictures, err := storage.NewLocalStore(filepath.Join(dir, "pictures"))
	if err != nil {
		t.Fatal(err)
	}

	log := logger.NewNoOpLogger()
	parser := services.NewQuestionParser(completer, services.ParserConfig{MaxInputChars: 20000, MaxTokens: 4096}, log)
	extractor := stubExtractor{text: "--- Page 1 ---\n1. Which port does HTTPS use?\n① 21 ② 80 ③ 443 ④ 8080\nAnswer: ③"}
	hub := websocket.NewHub(log)
	ingestion := services.NewIngestionService(db, uploads, extractor, parser, services.IngestionConfig{MaxUploadBytes: settings.MaxUploadBytes}, log)
	ingestion.SetReporter(hub)

	h := &handlers.Handler{
		DB:           db,
		Settings:     settings,
		Ingestion:    ingestion,
		Documents:    services.NewDocumentService(db, uploads, log),
		Answers:      services.NewAnswerService(db),
		Stats:        services.NewStatsService(db),
		Explanations: services.NewExplanationService(db, completer, settings.LLMTemperature, log),
		Generator:    services.NewGenerationService(db, completer, settings.LLMTemperature, log),
		Exporter: services.NewExportService(db, func(_ context.Context, html string) ([]byte, error) {
			return []byte("%PDF-1.4 " + html), nil
		}),
		Pictures: pictures,
		Mailer:   notifications.NewEmailService(config.Settings{}, log),
		Log:      log,
	}

	app := fiber.New()
	Register(app, h, hub)
	return &testEnv{app: app, db: db, dir: dir}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func jsonRequest(method, path, token string, body any) *http.Request {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func fileRequest(t *testing.T, path, token, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(content)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := e.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username, "password": password,
	}))
	if status != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, status, body)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if out.TokenType != "bearer" || out.AccessToken == "" {
		t.Fatalf("unexpected login response %s", body)
	}
	return out.AccessToken
}

func TestHealthAndRoot(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	for _, path := range []string{"/", "/health"} {
		if status, body := env.do(t, httptest.NewRequest(http.MethodGet, path, nil)); status != http.StatusOK {
			t.Errorf("GET %s = %d: %s", path, status, body)
		}
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})

	reg := map[string]string{"username": "jiwoo", "email": "jiwoo@example.com", "password": "secret"}
	if status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/register", "", reg)); status != http.StatusCreated {
		t.Fatalf("register = %d: %s", status, body)
	}
	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/register", "", reg)); status != http.StatusBadRequest {
		t.Errorf("duplicate register = %d, want 400", status)
	}
	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "jiwoo", "password": "wrong"})); status != http.StatusUnauthorized {
		t.Errorf("bad password login = %d, want 401", status)
	}

	token := env.login(t, "jiwoo", "secret")
	status, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/users/me", token, nil))
	if status != http.StatusOK {
		t.Fatalf("me = %d: %s", status, body)
	}
	var me handlers.UserResponse
	json.Unmarshal(body, &me)
	if me.Username != "jiwoo" || me.IsAdmin {
		t.Errorf("unexpected me %+v", me)
	}
}

func TestLoginAcceptsForm(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("username=testuser&password=test123"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if status, body := env.do(t, req); status != http.StatusOK {
		t.Fatalf("form login = %d: %s", status, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})

	if status, _ := env.do(t, jsonRequest(http.MethodGet, "/api/v1/users/me", "", nil)); status != http.StatusBadRequest {
		t.Errorf("missing token = %d, want 400", status)
	}
	if status, _ := env.do(t, jsonRequest(http.MethodGet, "/api/v1/users/me", "not.a.jwt", nil)); status != http.StatusUnauthorized {
		t.Errorf("invalid token = %d, want 401", status)
	}

	student := env.login(t, "testuser", "test123")
	if status, _ := env.do(t, jsonRequest(http.MethodGet, "/api/v1/admin/users", student, nil)); status != http.StatusForbidden {
		t.Errorf("student on admin route = %d, want 403", status)
	}
	admin := env.login(t, "admin", "1234")
	status, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/admin/users", admin, nil))
	if status != http.StatusOK {
		t.Fatalf("admin users = %d: %s", status, body)
	}
	var users []handlers.UserResponse
	json.Unmarshal(body, &users)
	if len(users) != 2 {
		t.Errorf("got %d users, want 2 seeded", len(users))
	}
}

func TestIngestThenStudy(t *testing.T) {
	env := newTestEnv(t, stubCompleter{enabled: true, response: parsedResponse})
	admin := env.login(t, "admin", "1234")
	student := env.login(t, "testuser", "test123")

	status, body := env.do(t, fileRequest(t, "/api/v1/admin/upload-pdf-for-ocr", admin, "network.pdf", []byte("%PDF-1.4 fake")))
	if status != http.StatusOK {
		t.Fatalf("upload = %d: %s", status, body)
	}
	var summary services.IngestionSummary
	json.Unmarshal(body, &summary)
	if summary.QuestionsParsed != 1 || summary.QuestionsSaved != 1 || summary.Filename != "network.pdf" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	status, body = env.do(t, jsonRequest(http.MethodGet, "/api/v1/ocr-documents", student, nil))
	if status != http.StatusOK {
		t.Fatalf("list documents = %d: %s", status, body)
	}
	var docs []services.DocumentListItem
	json.Unmarshal(body, &docs)
	if len(docs) != 1 || docs[0].QuestionCount != 1 {
		t.Fatalf("unexpected documents %+v", docs)
	}

	status, body = env.do(t, jsonRequest(http.MethodGet, fmt.Sprintf("/api/v1/ocr-documents/%d/questions", summary.DocumentID), student, nil))
	if status != http.StatusOK {
		t.Fatalf("questions = %d: %s", status, body)
	}
	var questions []models.Question
	json.Unmarshal(body, &questions)
	if len(questions) != 1 || len(questions[0].Options) != 4 {
		t.Fatalf("unexpected questions %+v", questions)
	}
	correct := questions[0].Options[2]

	status, body = env.do(t, jsonRequest(http.MethodPost, "/api/v1/problems/submit-answer", student, map[string]uint{
		"question_id": questions[0].ID, "selected_option_id": correct.ID,
	}))
	if status != http.StatusOK {
		t.Fatalf("submit = %d: %s", status, body)
	}
	var result services.AnswerResult
	json.Unmarshal(body, &result)
	if !result.IsCorrect {
		t.Errorf("expected correct answer, got %+v", result)
	}

	status, body = env.do(t, jsonRequest(http.MethodGet, "/api/v1/users/me/profile/stats", student, nil))
	if status != http.StatusOK {
		t.Fatalf("stats = %d: %s", status, body)
	}
	var stats services.ProfileStats
	json.Unmarshal(body, &stats)
	if stats.TotalProblemsSolved != 1 || stats.CorrectAnswers != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	status, body = env.do(t, jsonRequest(http.MethodGet, fmt.Sprintf("/api/v1/ocr-documents/%d/export?answers=true", summary.DocumentID), student, nil))
	if status != http.StatusOK {
		t.Fatalf("export = %d: %s", status, body)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) || !bytes.Contains(body, []byte("Which port does HTTPS use?")) {
		t.Errorf("unexpected export body %.80q", body)
	}

	if status, _ := env.do(t, jsonRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/ocr-documents/%d", summary.DocumentID), student, nil)); status != http.StatusForbidden {
		t.Errorf("student delete = %d, want 403", status)
	}
	if status, body := env.do(t, jsonRequest(http.MethodDelete, fmt.Sprintf("/api/v1/admin/ocr-documents/%d", summary.DocumentID), admin, nil)); status != http.StatusOK {
		t.Fatalf("admin delete = %d: %s", status, body)
	}
	if status, _ := env.do(t, jsonRequest(http.MethodGet, fmt.Sprintf("/api/v1/ocr-documents/%d", summary.DocumentID), student, nil)); status != http.StatusNotFound {
		t.Errorf("deleted document = %d, want 404", status)
	}
	var answers int64
	env.db.Model(&models.UserAnswer{}).Count(&answers)
	if answers != 0 {
		t.Errorf("answers should cascade, %d left", answers)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	admin := env.login(t, "admin", "1234")

	status, body := env.do(t, fileRequest(t, "/api/v1/admin/upload-pdf-for-ocr", admin, "notes.txt", []byte("hello")))
	if status != http.StatusBadRequest {
		t.Fatalf("txt upload = %d: %s", status, body)
	}
	var count int64
	env.db.Model(&models.RawDocument{}).Count(&count)
	if count != 0 {
		t.Errorf("rejected upload left %d documents", count)
	}
}

func TestUploadOnlyThenExtract(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	student := env.login(t, "testuser", "test123")

	status, body := env.do(t, fileRequest(t, "/api/v1/pdfs", student, "scan.pdf", []byte("%PDF-1.4")))
	if status != http.StatusCreated {
		t.Fatalf("upload = %d: %s", status, body)
	}
	var up struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	json.Unmarshal(body, &up)
	if up.Status != "uploaded" {
		t.Errorf("status = %q", up.Status)
	}

	status, body = env.do(t, jsonRequest(http.MethodPost, fmt.Sprintf("/api/v1/pdfs/%d/extract-text", up.ID), student, nil))
	if status != http.StatusOK {
		t.Fatalf("extract = %d: %s", status, body)
	}
	var out struct {
		Content string `json:"content"`
		Length  int    `json:"length"`
	}
	json.Unmarshal(body, &out)
	if !strings.HasPrefix(out.Content, "--- Page 1 ---") || out.Length == 0 {
		t.Errorf("unexpected extraction %+v", out)
	}

	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/pdfs/999/extract-text", student, nil)); status != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", status)
	}
	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/pdfs/abc/extract-text", student, nil)); status != http.StatusBadRequest {
		t.Errorf("bad id = %d, want 400", status)
	}
}

func TestGenerateUnavailableWithoutModel(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	student := env.login(t, "testuser", "test123")

	status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/problems/generate", student, map[string]any{"text": "TCP is connection oriented."}))
	if status != http.StatusServiceUnavailable {
		t.Errorf("generate = %d, want 503", status)
	}
}

func TestProfileAutoCreateAndUpdate(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	student := env.login(t, "testuser", "test123")

	status, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/users/me/profile", student, nil))
	if status != http.StatusOK {
		t.Fatalf("profile = %d: %s", status, body)
	}
	var p handlers.ProfileResponse
	json.Unmarshal(body, &p)
	if p.DailyGoal != 5 || p.StudyTimeGoal != "1h" || len(p.TargetCertifications) != 0 {
		t.Errorf("unexpected default profile %s", body)
	}

	update := map[string]any{"daily_goal": 10, "target_certifications": []string{"CCNA", "정보처리기사"}}
	status, body = env.do(t, jsonRequest(http.MethodPut, "/api/v1/users/me/profile", student, update))
	if status != http.StatusOK {
		t.Fatalf("update = %d: %s", status, body)
	}
	json.Unmarshal(body, &p)
	if p.DailyGoal != 10 || len(p.TargetCertifications) != 2 || p.TargetCertifications[1] != "정보처리기사" {
		t.Errorf("unexpected updated profile %s", body)
	}

	if status, _ := env.do(t, jsonRequest(http.MethodPut, "/api/v1/users/me/profile", student, map[string]any{"daily_goal": 0})); status != http.StatusBadRequest {
		t.Errorf("daily_goal 0 = %d, want 400", status)
	}
}

func TestUpdateMeRequiresCurrentPassword(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	student := env.login(t, "testuser", "test123")

	bad := map[string]string{"current_password": "nope", "new_password": "fresh-pass"}
	if status, _ := env.do(t, jsonRequest(http.MethodPut, "/api/v1/users/me", student, bad)); status != http.StatusBadRequest {
		t.Errorf("wrong current password = %d, want 400", status)
	}
	taken := map[string]string{"email": "admin@example.com"}
	if status, _ := env.do(t, jsonRequest(http.MethodPut, "/api/v1/users/me", student, taken)); status != http.StatusBadRequest {
		t.Errorf("taken email = %d, want 400", status)
	}

	good := map[string]string{"current_password": "test123", "new_password": "fresh-pass"}
	if status, body := env.do(t, jsonRequest(http.MethodPut, "/api/v1/users/me", student, good)); status != http.StatusOK {
		t.Fatalf("update = %d: %s", status, body)
	}
	env.login(t, "testuser", "fresh-pass")
}

func TestResetPasswordIssuesTemporaryPassword(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})

	wrong := map[string]string{"username": "testuser", "email": "other@example.com"}
	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/reset-password", "", wrong)); status != http.StatusNotFound {
		t.Errorf("mismatched email = %d, want 404", status)
	}

	req := map[string]string{"username": "testuser", "email": "test@example.com"}
	status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/reset-password", "", req))
	if status != http.StatusOK {
		t.Fatalf("reset = %d: %s", status, body)
	}
	var out struct {
		TemporaryPassword string `json:"temporary_password"`
	}
	json.Unmarshal(body, &out)
	if len(out.TemporaryPassword) != 8 {
		t.Fatalf("temporary password %q", out.TemporaryPassword)
	}
	env.login(t, "testuser", out.TemporaryPassword)
}

func TestAdminResetUserPassword(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	admin := env.login(t, "admin", "1234")

	req := map[string]string{"username": "testuser", "new_password": "by-admin"}
	if status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/admin/users/reset-password", admin, req)); status != http.StatusOK {
		t.Fatalf("admin reset = %d: %s", status, body)
	}
	env.login(t, "testuser", "by-admin")

	missing := map[string]string{"username": "ghost", "new_password": "whatever"}
	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/admin/users/reset-password", admin, missing)); status != http.StatusNotFound {
		t.Errorf("unknown user = %d, want 404", status)
	}
}

func TestDeleteMe(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})

	admin := env.login(t, "admin", "1234")
	if status, _ := env.do(t, jsonRequest(http.MethodDelete, "/api/v1/users/me", admin, nil)); status != http.StatusForbidden {
		t.Errorf("admin self-delete = %d, want 403", status)
	}

	student := env.login(t, "testuser", "test123")
	if status, body := env.do(t, jsonRequest(http.MethodDelete, "/api/v1/users/me", student, nil)); status != http.StatusOK {
		t.Fatalf("delete = %d: %s", status, body)
	}
	status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "testuser", "password": "test123"}))
	if status != http.StatusUnauthorized {
		t.Errorf("login after delete = %d, want 401", status)
	}
}

func TestProfilePictureUpload(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	student := env.login(t, "testuser", "test123")

	if status, _ := env.do(t, fileRequest(t, "/api/v1/users/me/profile-picture", student, "me.bmp", []byte("BM"))); status != http.StatusBadRequest {
		t.Errorf("bmp upload = %d, want 400", status)
	}

	status, body := env.do(t, fileRequest(t, "/api/v1/users/me/profile-picture", student, "me.png", []byte("\x89PNG")))
	if status != http.StatusOK {
		t.Fatalf("png upload = %d: %s", status, body)
	}
	var first struct {
		URL string `json:"url"`
	}
	json.Unmarshal(body, &first)

	status, body = env.do(t, fileRequest(t, "/api/v1/users/me/profile-picture", student, "me2.jpg", []byte("\xff\xd8")))
	if status != http.StatusOK {
		t.Fatalf("jpg upload = %d: %s", status, body)
	}

	matches, _ := filepath.Glob(filepath.Join(env.dir, "pictures", "*"))
	if len(matches) != 1 {
		t.Errorf("previous picture should be replaced, found %v", matches)
	}
	if status, _ := env.do(t, httptest.NewRequest(http.MethodGet, first.URL, nil)); status != http.StatusNotFound {
		t.Errorf("old picture still served: %d", status)
	}
}

func TestCertifications(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	admin := env.login(t, "admin", "1234")

	cert := map[string]string{"name": "CCNA"}
	if status, body := env.do(t, jsonRequest(http.MethodPost, "/api/v1/admin/certifications", admin, cert)); status != http.StatusCreated {
		t.Fatalf("create = %d: %s", status, body)
	}
	if status, _ := env.do(t, jsonRequest(http.MethodPost, "/api/v1/admin/certifications", admin, cert)); status != http.StatusBadRequest {
		t.Errorf("duplicate = %d, want 400", status)
	}

	status, body := env.do(t, jsonRequest(http.MethodGet, "/api/v1/certifications", "", nil))
	if status != http.StatusOK {
		t.Fatalf("list = %d: %s", status, body)
	}
	var certs []models.Certification
	json.Unmarshal(body, &certs)
	if len(certs) != 1 || certs[0].Name != "CCNA" {
		t.Errorf("unexpected certifications %+v", certs)
	}
}

func TestWebsocketRouteRejectsPlainHTTP(t *testing.T) {
	env := newTestEnv(t, llm.Disabled{})
	status, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/ws/ingestion", nil))
	if status != fiber.StatusUpgradeRequired {
		t.Errorf("plain GET = %d, want 426", status)
	}
}
