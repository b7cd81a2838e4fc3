package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/portfolio-cms/adapters/event"
	"github.com/khoahotran/portfolio-cms/adapters/memory"
	"github.com/khoahotran/portfolio-cms/internal/application/store"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/asset"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/backup"
	"github.com/khoahotran/portfolio-cms/internal/application/usecase/portfolio"
	"github.com/khoahotran/portfolio-cms/internal/domain/aboutme"
	"github.com/khoahotran/portfolio-cms/internal/domain/experience"
	"github.com/khoahotran/portfolio-cms/internal/domain/skill"
	"github.com/khoahotran/portfolio-cms/pkg/auth"
	"github.com/khoahotran/portfolio-cms/pkg/logger"
)

const (
	ownerEmail    = "owner@example.com"
	ownerPassword = "owner-password"
)

type HandlerTestSuite struct {
	suite.Suite
	Router *gin.Engine
	assets *memory.AssetStorage
	stores *store.Stores
	jwtSvc *auth.JWTService
	token  string
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := logger.NewNopLogger()

	s.token = ""
	s.jwtSvc = auth.NewJWTService("test-secret", time.Hour)
	provider := memory.NewAuthProvider(s.jwtSvc)
	_, err := provider.AddUser(ownerEmail, ownerPassword)
	s.Require().NoError(err)

	s.assets = memory.NewAssetStorage("http://example.test/assets")
	cache := memory.NewSnapshotCache()
	invalidator := portfolio.NewInvalidator(cache, log)

	s.stores = store.New(ctx, store.Deps{
		AboutMe:        memory.NewCollection[aboutme.AboutMe](aboutme.Table, aboutme.Columns()),
		SkillsSection:  memory.NewCollection[skill.Section](skill.SectionTable, skill.SectionColumns()),
		Skills:         memory.NewCollection[skill.Skill](skill.Table, skill.Columns()),
		Experiences:    memory.NewCollection[experience.Experience](experience.Table, experience.Columns()),
		Assets:         asset.NewUploadAssetUseCase(s.assets, "skills", log),
		Auth:           provider,
		SessionStorage: memory.NewSessionStorage(),
		Events:         event.NewLocalPublisher(invalidator.HandleContentEvent),
		Logger:         log,
	})
	s.T().Cleanup(s.stores.Close)

	portfolioUseCase := portfolio.NewPortfolioUseCase(s.stores, cache, time.Minute, log)
	s.Router = NewRouter(RouterDeps{
		Stores:    s.stores,
		Portfolio: portfolioUseCase,
		Backup:    backup.NewBackupUseCase(portfolioUseCase, s.assets, "backups", log),
		Assets:    s.assets,
		JWT:       s.jwtSvc,
		Logger:    log,
	})
}

// do sends the request with the token from the last login, if any.
func (s *HandlerTestSuite) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	authorization := ""
	if s.token != "" {
		authorization = "Bearer " + s.token
	}
	return s.doWithAuth(authorization, method, path, body, contentType)
}

func (s *HandlerTestSuite) doWithAuth(authorization, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func (s *HandlerTestSuite) doJSON(method, path string, v any) *httptest.ResponseRecorder {
	body, err := json.Marshal(v)
	s.Require().NoError(err)
	return s.do(method, path, bytes.NewReader(body), "application/json")
}

func (s *HandlerTestSuite) login() {
	rr := s.doJSON(http.MethodPost, "/api/admin/auth/login", gin.H{"email": ownerEmail, "password": ownerPassword})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	res := decode[struct {
		User        *UserDTO  `json:"user"`
		AccessToken string    `json:"access_token"`
		ExpiresAt   time.Time `json:"expires_at"`
	}](s, rr)
	s.Require().NotNil(res.User)
	s.Require().NotEmpty(res.AccessToken)
	s.Require().True(res.ExpiresAt.After(time.Now()))
	s.token = res.AccessToken
}

func (s *HandlerTestSuite) skillForm(name, fileName, contentType string, data []byte) (io.Reader, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	s.Require().NoError(w.WriteField("name", name))
	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="icon"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		s.Require().NoError(err)
		_, err = part.Write(data)
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())
	return &buf, w.FormDataContentType()
}

func decode[T any](s *HandlerTestSuite, rr *httptest.ResponseRecorder) T {
	var out T
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (s *HandlerTestSuite) Test_Health() {
	rr := s.do(http.MethodGet, "/api/health", nil, "")
	s.Equal(http.StatusOK, rr.Code)
}

func (s *HandlerTestSuite) Test_Login_Flow() {
	rr := s.doJSON(http.MethodPost, "/api/admin/auth/login", gin.H{"email": ownerEmail, "password": "wrong"})
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.doJSON(http.MethodPost, "/api/admin/auth/login", gin.H{"email": "not-an-email", "password": "x"})
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodGet, "/api/admin/about", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	s.login()

	rr = s.do(http.MethodGet, "/api/admin/auth/me", nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)
	me := decode[SessionDTO](s, rr)
	s.Require().NotNil(me.User)
	s.Equal(ownerEmail, me.User.Email)
	s.False(me.Loading)

	rr = s.do(http.MethodPost, "/api/admin/auth/logout", nil, "")
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodGet, "/api/admin/about", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)
}

func (s *HandlerTestSuite) Test_Admin_RequiresBearerToken() {
	s.login()

	rr := s.doWithAuth("", http.MethodPut, "/api/admin/about", strings.NewReader(`{"title":"Hijack","description":"<p>x</p>"}`), "application/json")
	s.Equal(http.StatusUnauthorized, rr.Code, "a second client must not ride the owner's session")

	rr = s.doWithAuth(s.token, http.MethodGet, "/api/admin/about", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code, "token without the Bearer scheme")

	rr = s.doWithAuth("Bearer not-a-jwt", http.MethodGet, "/api/admin/about", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	foreign, _, err := auth.NewJWTService("other-secret", time.Hour).GenerateToken(s.stores.Session.Snapshot().Data.ID, ownerEmail)
	s.Require().NoError(err)
	rr = s.doWithAuth("Bearer "+foreign, http.MethodGet, "/api/admin/about", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.doWithAuth("", http.MethodPost, "/api/admin/auth/logout", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodGet, "/api/admin/auth/me", nil, "")
	s.Require().Equal(http.StatusOK, rr.Code, "owner stays signed in after the anonymous logout")
	s.NotNil(decode[SessionDTO](s, rr).User)
}

func (s *HandlerTestSuite) Test_About_Upsert() {
	s.login()

	rr := s.doJSON(http.MethodPut, "/api/admin/about", gin.H{"title": "", "description": "<p>x</p>"})
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.doJSON(http.MethodPut, "/api/admin/about", gin.H{"title": "Hi", "description": "<p>About me</p>"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.doJSON(http.MethodPut, "/api/admin/about", gin.H{"title": "Hello", "description": "<p>About me</p>"})
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/api/admin/about", nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)
	st := decode[store.State[*aboutme.AboutMe]](s, rr)
	s.Require().NotNil(st.Data)
	s.Equal("Hello", st.Data.Title)
}

func (s *HandlerTestSuite) Test_Skills_UploadServeDelete() {
	s.login()

	body, ct := s.skillForm("Go", "go.png", "image/png", []byte("png-data"))
	rr := s.do(http.MethodPost, "/api/admin/skills", body, ct)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	st := decode[store.State[[]skill.Skill]](s, rr)
	s.Require().Len(st.Data, 1)
	s.Require().NotNil(st.Data[0].IconURL)

	iconPath := (*st.Data[0].IconURL)[len("http://example.test"):]
	rr = s.do(http.MethodGet, iconPath, nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("png-data", rr.Body.String())

	body, ct = s.skillForm("Golang", "", "", nil)
	rr = s.do(http.MethodPut, "/api/admin/skills/"+st.Data[0].ID.String(), body, ct)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[store.State[[]skill.Skill]](s, rr)
	s.Equal("Golang", updated.Data[0].Name)
	s.Equal(*st.Data[0].IconURL, *updated.Data[0].IconURL)

	rr = s.do(http.MethodDelete, "/api/admin/skills/"+st.Data[0].ID.String(), nil, "")
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodGet, "/api/admin/skills", nil, "")
	s.Empty(decode[store.State[[]skill.Skill]](s, rr).Data)
}

func (s *HandlerTestSuite) Test_BindSkill_ReleaseClosesIcon() {
	body, ct := s.skillForm("Go", "go.png", "image/png", []byte("png-data"))
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/admin/skills", body)
	c.Request.Header.Set("Content-Type", ct)
	// Spill the icon to a temp file so it holds a real descriptor.
	s.Require().NoError(c.Request.ParseMultipartForm(1))
	s.T().Cleanup(func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	})

	name, icon, release, ok := bindSkill(c)
	s.Require().True(ok, c.Errors.String())
	s.Equal("Go", name)
	s.Require().NotNil(icon)

	release()
	_, err := icon.Body.Read(make([]byte, 1))
	s.ErrorIs(err, os.ErrClosed)
}

func (s *HandlerTestSuite) Test_Skills_RejectsBadIcon() {
	s.login()

	body, ct := s.skillForm("Go", "go.gif", "image/gif", []byte("gif"))
	rr := s.do(http.MethodPost, "/api/admin/skills", body, ct)
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(0, s.assets.Len())
}

func (s *HandlerTestSuite) Test_Skills_StoreFailureIsBadGateway() {
	s.login()
	s.assets.FailUploads(errors.New("bucket offline"))

	body, ct := s.skillForm("Go", "go.png", "image/png", []byte("png"))
	rr := s.do(http.MethodPost, "/api/admin/skills", body, ct)
	s.Equal(http.StatusBadGateway, rr.Code)
	s.Contains(rr.Body.String(), "bucket offline")
}

func (s *HandlerTestSuite) Test_Experiences_CRUD() {
	s.login()

	rr := s.doJSON(http.MethodPost, "/api/admin/experiences", gin.H{
		"employer": "Acme", "role": "Engineer", "start_date": "2020-01-01T00:00:00Z",
		"employment_type": "Full-time", "location": "Remote", "description": "<p>Work</p>",
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.doJSON(http.MethodPost, "/api/admin/experiences", gin.H{
		"employer": "Globex", "role": "Lead", "start_date": "2023-01-01T00:00:00Z", "end_date": "2024-01-01T00:00:00Z",
		"employment_type": "Contract", "location": "Hanoi", "description": "<p>More</p>",
	})
	s.Require().Equal(http.StatusCreated, rr.Code)

	st := decode[store.State[[]experience.Experience]](s, rr)
	s.Require().Len(st.Data, 2)
	s.Equal("Globex", st.Data[0].Employer)
	s.Equal("Acme", st.Data[1].Employer)

	rr = s.doJSON(http.MethodPost, "/api/admin/experiences", gin.H{
		"employer": "X", "role": "Y", "start_date": "2020-01-01T00:00:00Z",
		"employment_type": "Volunteer", "location": "Z", "description": "<p>w</p>",
	})
	s.Equal(http.StatusBadRequest, rr.Code)

	rr = s.doJSON(http.MethodPut, "/api/admin/experiences/"+st.Data[1].ID.String(), gin.H{
		"employer": "Acme", "role": "Principal", "start_date": "2025-01-01T00:00:00Z",
		"employment_type": "Full-time", "location": "Remote", "description": "<p>Work</p>",
	})
	s.Require().Equal(http.StatusOK, rr.Code)
	st = decode[store.State[[]experience.Experience]](s, rr)
	s.Equal("Principal", st.Data[0].Role)

	rr = s.do(http.MethodDelete, "/api/admin/experiences/"+st.Data[0].ID.String(), nil, "")
	s.Equal(http.StatusNoContent, rr.Code)

	rr = s.do(http.MethodDelete, "/api/admin/experiences/not-a-uuid", nil, "")
	s.Equal(http.StatusBadRequest, rr.Code)
}

func (s *HandlerTestSuite) Test_Portfolio_IsPublic() {
	s.login()
	rr := s.doJSON(http.MethodPut, "/api/admin/skills/section", gin.H{"title": "Skills", "description": "Tools I use daily"})
	s.Require().Equal(http.StatusCreated, rr.Code)
	s.do(http.MethodPost, "/api/admin/auth/logout", nil, "")

	rr = s.do(http.MethodGet, "/api/portfolio", nil, "")
	s.Require().Equal(http.StatusOK, rr.Code)

	var snap struct {
		Section *skill.Section    `json:"skills_section"`
		Errors  map[string]string `json:"errors"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &snap))
	s.Require().NotNil(snap.Section)
	s.Equal("Skills", snap.Section.Title)
	s.Contains(snap.Errors, aboutme.Table)
}

func (s *HandlerTestSuite) Test_Backup() {
	rr := s.do(http.MethodPost, "/api/admin/backups", nil, "")
	s.Equal(http.StatusUnauthorized, rr.Code)

	s.login()
	rr = s.do(http.MethodPost, "/api/admin/backups", nil, "")
	s.Equal(http.StatusBadGateway, rr.Code, "about me is still empty")

	rr = s.doJSON(http.MethodPut, "/api/admin/about", gin.H{"title": "Hi", "description": "<p>About me</p>"})
	s.Require().Equal(http.StatusCreated, rr.Code)
	rr = s.doJSON(http.MethodPut, "/api/admin/skills/section", gin.H{"title": "Skills", "description": "Tools"})
	s.Require().Equal(http.StatusCreated, rr.Code)

	rr = s.do(http.MethodPost, "/api/admin/backups", nil, "")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	res := decode[backup.Result](s, rr)
	_, ok := s.assets.Object("backups", res.Key)
	s.True(ok)
}

func (s *HandlerTestSuite) Test_Metrics() {
	s.do(http.MethodGet, "/api/portfolio", nil, "")

	rr := s.do(http.MethodGet, "/metrics", nil, "")
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "portfolio_store_operations_total")
}

func TestRespondWrite_FailureComesFromResult(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorMiddleware(logger.NewNopLogger()))
	router.POST("/write", func(c *gin.Context) {
		// The shared state was already reset by a later request.
		respondWrite(c, store.WriteResult{Error: "bucket offline"}, store.State[[]skill.Skill]{})
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/write", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "bucket offline")
}
