package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/config"
	"github.com/jorellortega/covionpartners-sub001/middleware"
	"github.com/jorellortega/covionpartners-sub001/pager"
	"github.com/jorellortega/covionpartners-sub001/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:                8080,
			MaxUploadMB:         1,
			RedeemRatePerMinute: 100,
		},
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			TokenExpireHours:       24,
			AccessTokenExpireHours: 1,
		},
		Editor: config.EditorConfig{PageSize: 40, MaxSessions: 10},
		Users: []config.User{
			{Username: "alice", Password: "alice-pass", UserID: "u-alice", Memberships: []config.Membership{{Org: "acme", Role: "owner"}}},
			{Username: "bob", Password: "bob-pass", UserID: "u-bob", Memberships: []config.Membership{{Org: "acme", Role: "staff", Level: 2}}},
			{Username: "carol", Password: "carol-pass", UserID: "u-carol", Memberships: []config.Membership{{Org: "acme", Role: "staff", Level: 4}}},
			{Username: "mallory", Password: "mallory-pass", UserID: "u-mallory", Memberships: []config.Membership{{Org: "other", Role: "owner"}}},
		},
	}
}

type testServer struct {
	t      *testing.T
	cfg    *config.Config
	router *gin.Engine
	blobs  *service.MemoryBlobStore
	svc    Services
}

// newTestServer builds the full router over a private SQLite database and an
// in-memory blob store.
func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := service.OpenDatabase(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:handler_%s?mode=memory&cache=shared&_busy_timeout=5000", name),
	})
	if err != nil {
		t.Fatalf("OpenDatabase failed: %v", err)
	}
	if err := service.Migrate(db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	p, err := pager.New(cfg.Editor.PageSize)
	if err != nil {
		t.Fatalf("pager.New failed: %v", err)
	}

	contracts := service.NewGormContractRepository(db)
	codes := service.NewGormAccessCodeRepository(db)
	identity := service.NewConfigIdentityProvider(cfg)
	sessions := service.NewEditSessionStore(cfg.Editor.MaxSessions)
	blobs := service.NewMemoryBlobStore("https://files.test")

	svc := Services{
		Identity:  identity,
		Contracts: service.NewContractService(contracts, codes, identity, sessions),
		Forms:     service.NewFormService(contracts, blobs, service.NewMemoryFieldCache(time.Minute)),
		Editing:   service.NewEditingService(contracts, sessions, p),
	}
	return &testServer{
		t:      t,
		cfg:    cfg,
		router: NewRouter(cfg, svc),
		blobs:  blobs,
		svc:    svc,
	}
}

// token signs a user token for a configured username.
func (s *testServer) token(username string) string {
	s.t.Helper()
	user := s.cfg.FindUser(username)
	if user == nil {
		s.t.Fatalf("unknown test user %s", username)
	}
	token, _, err := middleware.GenerateToken(user, &s.cfg.Auth)
	if err != nil {
		s.t.Fatalf("GenerateToken failed: %v", err)
	}
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(path, token, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		header["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		s.t.Fatalf("CreatePart failed: %v", err)
	}
	part.Write(data)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// createContract creates a contract as username and returns its id.
func (s *testServer) createContract(username, title, body string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/contracts", s.token(username), map[string]string{"title": title, "body": body})
	if w.Code != http.StatusCreated {
		s.t.Fatalf("create contract: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	return decode(s.t, w)["id"].(string)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
	return out
}

// signerFormPDF is a one-page PDF with a text field signer_name and a checkbox agree.
func signerFormPDF() []byte {
	const appearance = "<< /Type /XObject /Subtype /Form /BBox [0 0 20 20] /Length 3 >>\nstream\nq Q\nendstream"
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 6 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> /Contents 4 0 R /Annots [5 0 R 7 0 R] >>",
		"<< /Length 3 >>\nstream\nq Q\nendstream",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (signer_name) /Rect [50 700 300 720] /P 3 0 R /F 4 /DA (/Helv 12 Tf 0 g) >>",
		"<< /Fields [5 0 R 7 0 R] /DA (/Helv 0 Tf 0 g) >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (agree) /Rect [50 650 70 670] /P 3 0 R /F 4 /V /Off /AS /Off /AP << /N << /Yes 8 0 R /Off 9 0 R >> >> >>",
		appearance,
		appearance,
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objs))
	for i, body := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objs)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}
