package geo_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SergeiKhy/scissors/internal/geo"
	"github.com/SergeiKhy/scissors/internal/models"
	"github.com/stretchr/testify/assert"
)

// TestClient_Locate_Success проверяет разбор ответа в формате ipapi.co
func TestClient_Locate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/8.8.8.8/json/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"city":"Lagos","country_name":"Nigeria"}`))
	}))
	defer srv.Close()

	client := geo.NewClient(srv.URL, time.Second, nil)
	loc := client.Locate(context.Background(), "8.8.8.8")

	assert.Equal(t, models.Location{City: "Lagos", Country: "Nigeria"}, loc)
}

// TestClient_Locate_Failures проверяет деградацию до Unknown при любых сбоях
func TestClient_Locate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "ошибка сервера",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "невалидный JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
		{
			name: "отказ сервиса",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"error":true,"reason":"RateLimited"}`))
			},
		},
		{
			name: "таймаут",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.Write([]byte(`{"city":"Late","country_name":"Late"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := geo.NewClient(srv.URL, 50*time.Millisecond, nil)
			loc := client.Locate(context.Background(), "8.8.8.8")

			assert.Equal(t, models.UnknownPlace(), loc)
		})
	}
}

// TestClient_Locate_PrivateIP проверяет, что приватные адреса не отправляются во внешний сервис
func TestClient_Locate_PrivateIP(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := geo.NewClient(srv.URL, time.Second, nil)
	for _, ip := range []string{"", "127.0.0.1", "192.168.1.10", "::1", "garbage"} {
		assert.Equal(t, models.UnknownPlace(), client.Locate(context.Background(), ip))
	}
	assert.False(t, called)
}
