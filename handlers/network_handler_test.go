package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
)

type fakeStatusFetcher struct {
	status *hoppie.Status
	err    error
}

func (f fakeStatusFetcher) NetworkStatus(context.Context) (*hoppie.Status, error) {
	return f.status, f.err
}

func TestGetNetworkStatus(t *testing.T) {
	tests := []struct {
		name    string
		fetcher fakeStatusFetcher
		want    int
	}{
		{"ok", fakeStatusFetcher{status: &hoppie.Status{StatusCode: "ok"}}, http.StatusOK},
		{"malformed", fakeStatusFetcher{err: &hoppie.Error{Kind: hoppie.KindMalformed}}, http.StatusBadGateway},
		{"timeout", fakeStatusFetcher{err: hoppie.ErrTimeout}, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/network/status", nil), rec)

			if err := NewNetworkHandler(tt.fetcher).GetNetworkStatus(c); err != nil {
				t.Fatalf("GetNetworkStatus returned error: %v", err)
			}
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}
