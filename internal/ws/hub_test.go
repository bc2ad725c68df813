package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/rcsclean/internal/store"
	wsHub "github.com/obsidianstack/rcsclean/internal/ws"
	"github.com/obsidianstack/rcsclean/pkg/types"
)

const testInterval = 20 * time.Millisecond

// --- helpers ---

func newStore(seriesIDs ...string) *store.Store {
	st := store.New(5*time.Minute, 0)
	for _, id := range seriesIDs {
		add(st, id)
	}
	return st
}

func add(st *store.Store, seriesID string) {
	st.Add(seriesID,
		types.AngularSeries{Angles: []float64{0, 1}, Values: []float64{-3, -4}},
		&types.ProcessingReport{
			OriginalIssues: types.IssueReport{{Kind: types.IssueNegative, Count: 1, Message: "Found 1 negative RCS values"}},
			FixesApplied:   []string{"Data cleaning and interpolation"},
			FinalRange:     types.Range{Min: -4, Max: -3},
			DataPoints:     2,
		})
}

// startHub serves the hub from a test server and runs its broadcast loop.
func startHub(t *testing.T, st *store.Store) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(st, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(hub)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return m
}

// waitCount polls hub.Count until it equals want or a second passes.
func waitCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.Count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("Count: got %d, want %d", hub.Count(), want)
}

// --- tests ---

func TestHub_Connect_ReceivesImmediateReports(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore("scan-1", "scan-2"))

	m := readMessage(t, dial(t, wsURL))
	if m.Event != wsHub.EventReports {
		t.Errorf("event: got %q, want reports", m.Event)
	}
	if len(m.Data.Reports) != 2 || m.Data.Total != 2 {
		t.Errorf("reports: got %d (total %d), want 2", len(m.Data.Reports), m.Data.Total)
	}
	if m.Data.GeneratedAt == "" {
		t.Error("generated_at: missing")
	}
	r := m.Data.Reports[0]
	if r.DataPoints != 2 || r.FinalRange != [2]float64{-4, -3} {
		t.Errorf("summary: got %+v", r)
	}
}

func TestHub_SeriesFilter(t *testing.T) {
	st := newStore("scan-1", "scan-2", "scan-1")
	wsURL, _, _ := startHub(t, st)

	m := readMessage(t, dial(t, wsURL+"?series=scan-1"))
	if m.SeriesID != "scan-1" {
		t.Errorf("series_id: got %q, want scan-1", m.SeriesID)
	}
	if len(m.Data.Reports) != 2 || m.Data.Total != 2 {
		t.Fatalf("reports: got %d (total %d), want 2", len(m.Data.Reports), m.Data.Total)
	}
	for _, r := range m.Data.Reports {
		if r.SeriesID != "scan-1" {
			t.Errorf("unexpected series %q in filtered stream", r.SeriesID)
		}
	}

	all := readMessage(t, dial(t, wsURL))
	if all.Data.Total != 3 {
		t.Errorf("unfiltered total: got %d, want 3", all.Data.Total)
	}
}

func TestHub_EmptyStore(t *testing.T) {
	wsURL, _, _ := startHub(t, newStore())
	m := readMessage(t, dial(t, wsURL))
	if len(m.Data.Reports) != 0 {
		t.Errorf("reports: got %d, want 0", len(m.Data.Reports))
	}
}

func TestHub_CapsReportsPerMessage(t *testing.T) {
	st := newStore()
	for i := 0; i < wsHub.MaxReports+5; i++ {
		add(st, "bulk")
	}
	wsURL, _, _ := startHub(t, st)

	m := readMessage(t, dial(t, wsURL))
	if len(m.Data.Reports) != wsHub.MaxReports {
		t.Errorf("reports: got %d, want %d", len(m.Data.Reports), wsHub.MaxReports)
	}
	if m.Data.Total != wsHub.MaxReports+5 {
		t.Errorf("total: got %d", m.Data.Total)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	st := newStore()
	wsURL, _, _ := startHub(t, st)

	conn := dial(t, wsURL)
	readMessage(t, conn)

	add(st, "late")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		if len(m.Data.Reports) == 1 {
			if m.Data.Reports[0].SeriesID != "late" {
				t.Errorf("series_id: got %q, want late", m.Data.Reports[0].SeriesID)
			}
			return
		}
	}
	t.Fatal("no broadcast carried the new report")
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, newStore())

	conns := make([]*websocket.Conn, 3)
	for i := range conns {
		conns[i] = dial(t, wsURL)
		readMessage(t, conns[i])
	}
	waitCount(t, hub, 3)

	conns[0].Close()
	waitCount(t, hub, 2)
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, newStore())

	conn := dial(t, wsURL)
	readMessage(t, conn)
	waitCount(t, hub, 1)

	cancel()
	waitCount(t, hub, 0)
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	srv := httptest.NewServer(wsHub.New(newStore(), testInterval))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
