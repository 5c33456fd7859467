package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/motorctl/internal/control"
	"github.com/sweeney/motorctl/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Kp:          0.02,
		Ki:          0.055,
		Kd:          4,
		TickMs:      1,
		ReportMs:    50,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func sample(speed float64, stalled bool) control.Sample {
	return control.Sample{
		Time:      time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC),
		Elapsed:   5 * time.Second,
		Setpoint:  80,
		Speed:     speed,
		Command:   0.5,
		Steps:     750,
		Direction: control.Forward,
		Stalled:   stalled,
		Phase:     control.PhaseHigh,
		Accepted:  752,
		Rejected:  2,
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sample(79.5, false))
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if !sj.Status.Running {
		t.Error("expected Running=true")
	}
	if sj.Status.Control.Speed != 79.5 {
		t.Errorf("Speed: got %v, want 79.5", sj.Status.Control.Speed)
	}
	if sj.Status.Control.Setpoint != 80 {
		t.Errorf("Setpoint: got %v, want 80", sj.Status.Control.Setpoint)
	}
	if sj.Status.Control.AcceptedEdges != 752 {
		t.Errorf("AcceptedEdges: got %d, want 752", sj.Status.Control.AcceptedEdges)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Config.TickMs != 1 {
		t.Errorf("Config.TickMs: got %d, want 1", sj.Status.Config.TickMs)
	}
}

func TestJSONBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Running {
		t.Error("expected Running=false before the first tick")
	}
	if sj.Status.Control.Phase != "UNKNOWN" {
		t.Errorf("Phase before first tick: got %q, want UNKNOWN", sj.Status.Control.Phase)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sample(79.5, false))

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"79.50", "80.00", "FORWARD", "752 / 2"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestHTMLShowsStall(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(sample(0, true))

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "(stalled)") {
		t.Error("expected stall marker on page")
	}
}

func TestHTMLBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "starting") {
		t.Error("expected starting state before first tick")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Running {
		t.Error("expected Running=false initially")
	}

	tr.Update(sample(40, false))
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Running {
		t.Error("expected Running=true after update")
	}
	if sj2.Status.Control.Speed != 40 {
		t.Errorf("Speed: got %v, want 40", sj2.Status.Control.Speed)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true after update")
	}
}
