package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/mptable/internal/logger"
	"github.com/samcharles93/mptable/pkg/mptable"
)

// tableImage is a 0x400-byte image with a floating pointer at 0 and a
// three-entry table at 0x100.
func tableImage() []byte {
	entries := [][]byte{
		{0, 0, 0x14, 3, 0x33, 0x06, 0, 0, 0xfd, 0xab, 0x81, 0x07, 0, 0, 0, 0, 0, 0, 0, 0},
		{1, 0, 'P', 'C', 'I', ' ', ' ', ' '},
		{2, 1, 0x11, 1, 0, 0, 0xc0, 0xfe},
	}
	table := make([]byte, mptable.ConfigTableHeaderSize)
	copy(table, mptable.ConfigTableSignature)
	table[6] = 4
	copy(table[8:], "BOCHSCPU")
	binary.LittleEndian.PutUint16(table[34:], uint16(len(entries)))
	for _, e := range entries {
		table = append(table, e...)
	}
	binary.LittleEndian.PutUint16(table[4:], uint16(len(table)))
	table[7] = fix(table)

	fp := make([]byte, mptable.FloatingPointerSize)
	copy(fp, mptable.FloatingPointerSignature)
	binary.LittleEndian.PutUint32(fp[4:], 0x100)
	fp[8] = 1
	fp[9] = 4
	fp[10] = fix(fp)

	img := make([]byte, 0x400)
	copy(img, fp)
	copy(img[0x100:], table)
	return img
}

func fix(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v
	}
	return -sum
}

type testSource struct {
	img   []byte
	err   error
	loads atomic.Int32
}

func (s *testSource) load(ctx context.Context) (*mptable.Config, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return mptable.Read(bytes.NewReader(s.img), 0, mptable.ReadOptions{})
}

func newTestServer(t *testing.T, src *testSource, rate float64) (*Server, *echo.Echo) {
	t.Helper()
	s := New(Config{
		Load:       src.load,
		Source:     "test.bin",
		ReloadRate: rate,
		Logger:     logger.Discard(),
	})
	e := echo.New()
	s.Register(e)
	return s, e
}

func doGet(t *testing.T, e *echo.Echo, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error responseError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body.Error.Type
}

func TestHealth(t *testing.T) {
	t.Parallel()

	_, e := newTestServer(t, &testSource{img: tableImage()}, 0)
	rec := doGet(t, e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestNotLoaded(t *testing.T) {
	t.Parallel()

	_, e := newTestServer(t, &testSource{img: tableImage()}, 0)
	rec := doGet(t, e, "/v1/report")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := errorType(t, rec); got != "not_loaded" {
		t.Fatalf("error type: got %q", got)
	}
}

func TestReportEndpoints(t *testing.T) {
	t.Parallel()

	s, e := newTestServer(t, &testSource{img: tableImage()}, 0)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	rec := doGet(t, e, "/v1/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("report status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var rep struct {
		Source string `json:"source"`
		Header struct {
			OEM        string `json:"oem"`
			EntryCount int    `json:"entry_count"`
		} `json:"header"`
		Processors []json.RawMessage `json:"processors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Source != "test.bin" || rep.Header.OEM != "BOCHSCPU" || rep.Header.EntryCount != 3 || len(rep.Processors) != 1 {
		t.Fatalf("report: %+v", rep)
	}

	rec = doGet(t, e, "/v1/pointer")
	if rec.Code != http.StatusOK {
		t.Fatalf("pointer status: got %d", rec.Code)
	}
	var ptr struct {
		TableAddress string `json:"table_address"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ptr); err != nil {
		t.Fatalf("decode pointer: %v", err)
	}
	if ptr.TableAddress != "0x00000100" {
		t.Fatalf("table_address: got %q", ptr.TableAddress)
	}

	rec = doGet(t, e, "/v1/header")
	if rec.Code != http.StatusOK {
		t.Fatalf("header status: got %d", rec.Code)
	}
}

func TestEntriesEndpoint(t *testing.T) {
	t.Parallel()

	s, e := newTestServer(t, &testSource{img: tableImage()}, 0)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	rec := doGet(t, e, "/v1/entries?type=bus")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var buses struct {
		Type    string `json:"type"`
		Entries []struct {
			ID   int    `json:"id"`
			Type string `json:"type"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &buses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buses.Type != "bus" || len(buses.Entries) != 1 || buses.Entries[0].Type != "PCI" {
		t.Fatalf("entries: %+v", buses)
	}

	rec = doGet(t, e, "/v1/entries")
	var all map[string][]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode all: %v", err)
	}
	if len(all) != 5 || len(all["ioapics"]) != 1 || len(all["local_interrupts"]) != 0 {
		t.Fatalf("all entries: %v", all)
	}

	rec = doGet(t, e, "/v1/entries?type=bogus")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bogus status: got %d", rec.Code)
	}
	if got := errorType(t, rec); got != "invalid_request_error" {
		t.Fatalf("error type: got %q", got)
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	src := &testSource{img: tableImage()}
	_, e := newTestServer(t, src, 0.001)

	rec := doGet(t, e, "/v1/header?refresh=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("first refresh: got %d body=%s", rec.Code, rec.Body.String())
	}
	if src.loads.Load() != 1 {
		t.Fatalf("loads: got %d", src.loads.Load())
	}

	// The burst of one is spent; the next refresh is throttled but the
	// plain read still succeeds.
	rec = doGet(t, e, "/v1/header?refresh=true")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second refresh: got %d", rec.Code)
	}
	if got := errorType(t, rec); got != "rate_limit_error" {
		t.Fatalf("error type: got %q", got)
	}
	if rec := doGet(t, e, "/v1/header"); rec.Code != http.StatusOK {
		t.Fatalf("plain read: got %d", rec.Code)
	}
}

func TestRefreshDisabled(t *testing.T) {
	t.Parallel()

	src := &testSource{img: tableImage()}
	_, e := newTestServer(t, src, 0)
	rec := doGet(t, e, "/v1/report?refresh=1")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got := errorType(t, rec); got != "reload_disabled" {
		t.Fatalf("error type: got %q", got)
	}
	if src.loads.Load() != 0 {
		t.Fatalf("loads: got %d", src.loads.Load())
	}
}

func TestRefreshDecodeError(t *testing.T) {
	t.Parallel()

	src := &testSource{err: errors.New("device gone")}
	_, e := newTestServer(t, src, 10)
	rec := doGet(t, e, "/v1/report?refresh=1")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d", rec.Code)
	}
	if got := errorType(t, rec); got != "decode_error" {
		t.Fatalf("error type: got %q", got)
	}
}

func TestPointerMissing(t *testing.T) {
	t.Parallel()

	img := tableImage()
	s := New(Config{
		Load: func(ctx context.Context) (*mptable.Config, error) {
			return mptable.ReadTable(bytes.NewReader(img), 0x100, mptable.ReadOptions{})
		},
		Logger: logger.Discard(),
	})
	e := echo.New()
	s.Register(e)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if rec := doGet(t, e, "/v1/pointer"); rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestReloadSerialised(t *testing.T) {
	t.Parallel()

	img := tableImage()
	var active, peak atomic.Int32
	s := New(Config{
		Load: func(ctx context.Context) (*mptable.Config, error) {
			n := active.Add(1)
			defer active.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return mptable.Read(bytes.NewReader(img), 0, mptable.ReadOptions{})
		},
		Logger: logger.Discard(),
	})

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			if err := s.Reload(context.Background()); err != nil {
				t.Errorf("Reload: %v", err)
			}
		})
	}
	wg.Wait()

	if got := peak.Load(); got != 1 {
		t.Fatalf("concurrent loads: got %d, want 1", got)
	}
	if s.snapshot() == nil {
		t.Fatal("no report after reloads")
	}
}
