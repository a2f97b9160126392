package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SergeiKhy/scissors/internal/geo"
	"github.com/SergeiKhy/scissors/internal/handler"
	"github.com/SergeiKhy/scissors/internal/middleware"
	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/SergeiKhy/scissors/internal/repository/memory"
	"github.com/SergeiKhy/scissors/internal/service"
	"github.com/SergeiKhy/scissors/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notFoundPage = "Oops, Page not found. The page is either broken or deleted or does not exist."

func init() {
	gin.SetMode(gin.TestMode)
}

// stubResolver считает занятыми только перечисленные домены
type stubResolver map[string][]string

func (r stubResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

type testEnv struct {
	router http.Handler
	store  *memory.Store
	clicks service.ClickProcessor
	tokens *token.Manager
}

// newTestEnv поднимает роутер поверх in-memory хранилища
func newTestEnv(t *testing.T, configure ...func(*handler.RouterDeps)) *testEnv {
	t.Helper()

	store := memory.NewStore()
	tokens := token.NewManager("handler-secret", time.Hour)
	users := service.NewUserService(store.Users, tokens, "https://img.example/default.png", nil)
	clicks := service.NewClickProcessor(store.Clicks, users, geo.Static(models.Location{City: "Lagos", Country: "Nigeria"}), nil,
		service.ClickProcessorConfig{Workers: 2, Buffer: 100})
	clicks.Start()
	t.Cleanup(clicks.Stop)

	deps := handler.RouterDeps{
		Aliases: service.NewAliasService(store.Aliases, store.Cache, time.Hour, nil),
		Clicks:  clicks,
		Users:   users,
		Domains: service.NewDomainService(store.Domains, stubResolver{"taken.example": {"93.184.216.34"}}, nil),
		BaseURL: "http://sho.rt",
	}
	for _, fn := range configure {
		fn(&deps)
	}

	return &testEnv{
		router: handler.NewRouter(deps),
		store:  store,
		clicks: clicks,
		tokens: tokens,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// TestHealthCheck проверяет эндпоинт здоровья
func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"scissors"}`, w.Body.String())
}

// TestShortenAndRedirect проверяет полный цикл: создание, редирект, учёт клика
func TestShortenAndRedirect(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/urls/shorten", gin.H{"longUrl": "https://example.com", "shortUrl": "abc123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, "Short URL created!", created["message"])
	assert.Equal(t, "abc123", created["shortUrl"])
	assert.Equal(t, "http://sho.rt/s/abc123", created["link"])
	uniqueID, _ := created["uniqueId"].(string)
	require.NotEmpty(t, uniqueID)

	w = env.do(t, http.MethodGet, "/abc123", nil, "Referer", "https://news.example")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com", w.Header().Get("Location"))

	w = env.do(t, http.MethodGet, "/s/abc123", nil)
	assert.Equal(t, http.StatusFound, w.Code)

	// Тип алиаса учитывается префиксом маршрута
	w = env.do(t, http.MethodGet, "/c/abc123", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Stop дожидается обработки всех кликов
	env.clicks.Stop()

	w = env.do(t, http.MethodGet, "/api/urls/clicks/"+uniqueID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	agg := decode[models.ClickAggregate](t, w)
	assert.Equal(t, int64(2), agg.ClickCount)
	require.Len(t, agg.Clicks, 2)
	assert.Equal(t, "Lagos", agg.Clicks[0].Location.City)

	referrers := []string{agg.Clicks[0].Referrer, agg.Clicks[1].Referrer}
	assert.ElementsMatch(t, []string{"https://news.example", "direct"}, referrers)
}

// TestShorten_GeneratedAlias проверяет генерацию алиаса без shortUrl
func TestShorten_GeneratedAlias(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/urls/shorten", gin.H{"longUrl": "https://example.com/long"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[map[string]any](t, w)
	code, _ := created["shortUrl"].(string)
	assert.Len(t, code, 8)

	w = env.do(t, http.MethodPost, "/api/urls/shorten", gin.H{"longUrl": "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_url", decode[handler.ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodPost, "/api/urls/shorten", "{broken")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestRedirect_NotFound проверяет ответ на неизвестный алиас
func TestRedirect_NotFound(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{"/missing", "/s/missing", "/c/missing"} {
		w := env.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, target)
		assert.JSONEq(t, `{"message":"`+notFoundPage+`"}`, w.Body.String())
	}
}

// TestShortenCustom проверяет кастомные алиасы и конфликт имён
func TestShortenCustom(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/urls/allCustomLinks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"No custom links found!"}`, w.Body.String())

	body := gin.H{"longUrl": "https://example.com/promo", "customLink": "promo", "uniqueId": "promo-id"}
	w = env.do(t, http.MethodPost, "/api/urls/shortenCustom", body)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[map[string]any](t, w)
	assert.Equal(t, "Short custom URL created!", created["message"])
	assert.Equal(t, "promo", created["customLink"])
	assert.Equal(t, "http://sho.rt/c/promo", created["link"])

	w = env.do(t, http.MethodPost, "/api/urls/shortenCustom", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "alias_exists", decode[handler.ErrorResponse](t, w).Error)

	w = env.do(t, http.MethodGet, "/c/promo", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/promo", w.Header().Get("Location"))

	w = env.do(t, http.MethodGet, "/api/urls/allCustomLinks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	links := decode[[]map[string]any](t, w)
	require.Len(t, links, 1)
	assert.Equal(t, "promo", links[0]["customLink"])
	assert.Equal(t, "promo-id", links[0]["uniqueId"])
	assert.NotContains(t, links[0], "shortUrl")
}

// TestClicks_NotFound проверяет запрос статистики без кликов
func TestClicks_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/urls/clicks/nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestShorten_APIKey проверяет защиту создания алиасов API ключом
func TestShorten_APIKey(t *testing.T) {
	env := newTestEnv(t, func(d *handler.RouterDeps) {
		d.APIKeys = map[string]string{"k1": "frontend"}
	})
	body := gin.H{"longUrl": "https://example.com"}

	w := env.do(t, http.MethodPost, "/api/urls/shorten", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/urls/shorten", body, "X-API-Key", "k1")
	assert.Equal(t, http.StatusCreated, w.Code)

	// Чтение и редиректы без ключа
	w = env.do(t, http.MethodGet, "/api/urls/allCustomLinks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRateLimit проверяет отказ после исчерпания burst
func TestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{RequestsPerSecond: 1, BurstSize: 2})
	t.Cleanup(limiter.Stop)
	env := newTestEnv(t, func(d *handler.RouterDeps) { d.RateLimiter = limiter })

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/health", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/api/health", nil).Code)
}

// TestUsers_CRUD проверяет создание, поиск, частичное обновление и удаление
func TestUsers_CRUD(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/users", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "ada@example.com",
		"password":  "engine",
		"links":     []gin.H{{"mainLink": "https://example.com"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[models.User](t, w)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "https://img.example/default.png", user.ProfileImg)
	require.Len(t, user.Links, 1)
	assert.NotContains(t, w.Body.String(), "password")

	w = env.do(t, http.MethodGet, "/users?email=ada@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[map[string]any](t, w)
	assert.Equal(t, true, found["exists"])

	w = env.do(t, http.MethodGet, "/users?email=nobody@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"exists":false}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.User](t, w), 1)

	w = env.do(t, http.MethodPut, "/users/"+user.ID, gin.H{"email": "countess@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.User](t, w)
	assert.Equal(t, "countess@example.com", updated.Email)
	assert.Equal(t, "Ada", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Len(t, updated.Links, 1)

	w = env.do(t, http.MethodDelete, "/users/"+user.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"User deleted successfully"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/users/"+user.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/users/"+user.ID+"/links/"+user.Links[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestUsers_EmptyList проверяет пустой массив вместо null
func TestUsers_EmptyList(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/users", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(t, http.MethodPost, "/users", gin.H{"firstName": "NoEmail"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestLogin проверяет вход и сообщения об ошибках
func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/users", gin.H{"email": "grace@example.com", "password": "cobol"})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[models.User](t, w)

	w = env.do(t, http.MethodPost, "/login", gin.H{"email": "grace@example.com", "password": "cobol"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[struct {
		Message string      `json:"message"`
		User    models.User `json:"user"`
		Token   string      `json:"token"`
	}](t, w)
	assert.Equal(t, "Login successful", resp.Message)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := env.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	w = env.do(t, http.MethodPost, "/login", gin.H{"email": "grace@example.com", "password": "fortran"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode[handler.ErrorResponse](t, w).Message)

	w = env.do(t, http.MethodPost, "/login", gin.H{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "User not found. Please Sign Up.", decode[handler.ErrorResponse](t, w).Message)
}

// TestUsers_TokenProtection проверяет JWT на мутациях профиля
func TestUsers_TokenProtection(t *testing.T) {
	env := newTestEnv(t, func(d *handler.RouterDeps) {
		d.Tokens = token.NewManager("handler-secret", time.Hour)
	})

	w := env.do(t, http.MethodPost, "/users", gin.H{"email": "a@example.com", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	alice := decode[models.User](t, w)
	w = env.do(t, http.MethodPost, "/users", gin.H{"email": "b@example.com", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	bob := decode[models.User](t, w)

	aliceToken, err := env.tokens.Generate(alice.ID)
	require.NoError(t, err)
	auth := "Bearer " + aliceToken

	w = env.do(t, http.MethodPut, "/users/"+alice.ID, gin.H{"firstName": "Alice"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPut, "/users/"+bob.ID, gin.H{"firstName": "Mallory"}, "Authorization", auth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/users/"+alice.ID, gin.H{"firstName": "Alice"}, "Authorization", auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/users/"+bob.ID+"/links", gin.H{"mainLink": "https://x.example"}, "Authorization", auth)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Чтение профиля открыто
	w = env.do(t, http.MethodGet, "/users/"+bob.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestUserLinks проверяет операции над ссылками и учёт кликов
func TestUserLinks(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/users", gin.H{"email": "links@example.com"})
	require.Equal(t, http.StatusCreated, w.Code)
	user := decode[models.User](t, w)
	base := "/users/" + user.ID + "/links"

	w = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(t, http.MethodPost, base, gin.H{"title": "Docs", "mainLink": "https://docs.example", "qrcode": "data:qr"})
	require.Equal(t, http.StatusCreated, w.Code)
	link := decode[models.Link](t, w)
	assert.Zero(t, link.Clicks)

	w = env.do(t, http.MethodPut, base+"/"+link.ID, gin.H{"title": "Documentation"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Link](t, w)
	assert.Equal(t, "Documentation", updated.Title)
	assert.Equal(t, "https://docs.example", updated.MainLink)
	assert.Equal(t, "data:qr", updated.QRCode)

	for i := 0; i < 2; i++ {
		w = env.do(t, http.MethodPost, "/links/"+link.ID+"/click", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	counted := decode[models.Link](t, w)
	assert.Equal(t, int64(2), counted.Clicks)
	assert.Len(t, counted.Visits, 2)

	w = env.do(t, http.MethodPost, "/links/unknown/click", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Редирект по алиасу, привязанному к ссылке, тоже увеличивает её счётчик
	w = env.do(t, http.MethodPost, "/api/urls/shorten", gin.H{"longUrl": "https://docs.example", "shortUrl": "docs", "uniqueId": link.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	w = env.do(t, http.MethodGet, "/s/docs", nil)
	require.Equal(t, http.StatusFound, w.Code)
	env.clicks.Stop()

	w = env.do(t, http.MethodGet, base+"/"+link.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), decode[models.Link](t, w).Clicks)

	w = env.do(t, http.MethodDelete, base+"/"+link.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, base+"/"+link.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/users/missing/links", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestDomains проверяет реестр доменов и формат ответов
func TestDomains(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/get-domains", nil)
	assert.JSONEq(t, `{"domains":[]}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/add-domain", gin.H{"id": "d1", "domain": "Links.Example"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Domain added","domains":[{"id":"d1","domain":"links.example"}]}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/add-domain", gin.H{"id": "d2", "domain": "links.example"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Domain already exists or invalid","domains":[{"id":"d1","domain":"links.example"}]}`, w.Body.String())

	w = env.do(t, http.MethodPost, "/add-domain", gin.H{"id": "d3", "domain": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/add-domain", gin.H{"id": "d2", "domain": "other.example"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, "/update-domain", gin.H{"id": "d2", "newDomain": "links.example"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "New domain already exists", decode[handler.DomainResponse](t, w).Message)

	w = env.do(t, http.MethodPut, "/update-domain", gin.H{"id": "missing", "newDomain": "new.example"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Domain not found", decode[handler.DomainResponse](t, w).Message)

	w = env.do(t, http.MethodPut, "/update-domain", gin.H{"id": "d2", "newDomain": "renamed.example"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Domain updated", decode[handler.DomainResponse](t, w).Message)

	w = env.do(t, http.MethodDelete, "/remove-domain", gin.H{"id": "d1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Domain removed","domains":[{"id":"d2","domain":"renamed.example"}]}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/remove-domain", gin.H{"id": "d1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[handler.DomainResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "Domain not found", resp.Message)

	w = env.do(t, http.MethodDelete, "/remove-domain", gin.H{"domain": "renamed.example"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestCheckDomain проверяет проверку доступности домена
func TestCheckDomain(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/check-domain?domain=taken.example", nil)
	assert.JSONEq(t, `{"available":false}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/check-domain?domain=free.example", nil)
	assert.JSONEq(t, `{"available":true}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/check-domain", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestMetricsEndpoint проверяет экспорт метрик Prometheus
func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(t, http.MethodGet, "/api/health", nil)
	w := env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
