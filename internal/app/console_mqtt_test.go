package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFormatPayload(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{
			`{"Time":"2026-03-14T09:26:53","CustomSensor":{"Temperature":25.08,"Humidity":49.43,"Pressure":1006.53}}`,
			"[BME280] 2026-03-14T09:26:53  T= 25.08°C  H= 49.43%  P=1006.53hPa",
		},
		{
			`{"Time":"2026-03-14T09:26:53","CustomSensor":{"Error":"Range","FailCount":1}}`,
			"[BME280] 2026-03-14T09:26:53  error=Range fails=1",
		},
		{
			`{"CustomSensor":{"Temperature":"hot"}}`,
			"[INVALID]",
		},
	}
	for _, tt := range tests {
		if got := formatPayload([]byte(tt.raw)); !strings.HasPrefix(got, tt.want) {
			t.Errorf("formatPayload(%s)\n got %q\nwant %q", tt.raw, got, tt.want)
		}
	}
}

func TestHandleSensorMessage(t *testing.T) {
	cache := &telemetryCache{}
	hub := newStreamHub()

	handleSensorMessage(cache, hub, []byte(`{"CustomSensor":{"Error":"Gremlins"}}`))
	rec := httptest.NewRecorder()
	cache.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalid payload cached: code %d", rec.Code)
	}

	good := `{"Time":"2026-03-14T09:26:53","CustomSensor":{"Error":"NotReady","FailCount":0}}`
	handleSensorMessage(cache, hub, []byte(good))
	rec = httptest.NewRecorder()
	cache.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != good {
		t.Errorf("body = %s, want %s", got, good)
	}
	if string(hub.latest) != good {
		t.Errorf("hub latest = %s", hub.latest)
	}
}
