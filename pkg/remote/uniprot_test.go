package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Timeout:        2 * time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

// fakeMapping imitates the UniProt ID mapping job API.
type fakeMapping struct {
	mu       sync.Mutex
	known    map[string]string
	jobs     map[string][]string
	polls    map[string]int
	batches  [][]string
	queries  []string
	runFails bool
	status   string
}

func newFakeMapping(known map[string]string) *fakeMapping {
	return &fakeMapping{
		known: known,
		jobs:  make(map[string][]string),
		polls: make(map[string]int),
	}
}

func (f *fakeMapping) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/idmapping/run":
		if f.runFails {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Form.Get("from") != FromEnsemblProtein || r.Form.Get("to") != ToUniProtKB {
			http.Error(w, "bad vocabulary", http.StatusBadRequest)
			return
		}
		ids := strings.Split(r.Form.Get("ids"), ",")
		jobID := fmt.Sprintf("job%d", len(f.batches))
		f.jobs[jobID] = ids
		f.batches = append(f.batches, ids)
		fmt.Fprintf(w, `{"jobId":%q}`, jobID)

	case strings.HasPrefix(r.URL.Path, "/idmapping/status/"):
		jobID := strings.TrimPrefix(r.URL.Path, "/idmapping/status/")
		f.polls[jobID]++
		switch {
		case f.status != "":
			fmt.Fprintf(w, `{"jobStatus":%q}`, f.status)
		case f.polls[jobID] == 1:
			fmt.Fprint(w, `{"jobStatus":"RUNNING"}`)
		default:
			fmt.Fprint(w, `{"jobStatus":"FINISHED"}`)
		}

	case strings.HasPrefix(r.URL.Path, "/idmapping/uniprotkb/results/stream/"):
		jobID := strings.TrimPrefix(r.URL.Path, "/idmapping/uniprotkb/results/stream/")
		f.queries = append(f.queries, r.URL.RawQuery)
		var parts []string
		for _, id := range f.jobs[jobID] {
			if acc, ok := f.known[id]; ok {
				parts = append(parts, fmt.Sprintf(`{"from":%q,"to":{"primaryAccession":%q}}`, id, acc))
			}
		}
		// A stray id the job was never asked about
		parts = append(parts, `{"from":"ENSP_FOREIGN","to":{"primaryAccession":"Z99999"}}`)
		fmt.Fprintf(w, `{"results":[%s],"failedIds":[]}`, strings.Join(parts, ","))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeMapping) submitted() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.batches...)
}

func newTestUniProt(t *testing.T, h http.Handler) *UniProt {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u := NewUniProt(srv.URL, srv.Client(), testConfig())
	u.BatchDelay = 0
	u.PollInterval = time.Millisecond
	return u
}

func TestMapIDsBatchPartitioning(t *testing.T) {
	known := map[string]string{
		"ENSP1": "P00001",
		"ENSP2": "P00002",
		"ENSP4": "P00004",
		"ENSP7": "P00007",
	}
	fake := newFakeMapping(known)
	u := newTestUniProt(t, fake)
	u.BatchSize = 3

	ids := []string{"ENSP1", "ENSP2", "ENSP3", "ENSP4", "ENSP5", "ENSP6", "ENSP7"}
	mapping, err := u.MapIDs(context.Background(), ids)
	require.NoError(t, err)

	// ceil(7/3) jobs, consecutive and disjoint
	batches := fake.submitted()
	require.Len(t, batches, 3)
	assert.Equal(t, [][]string{
		{"ENSP1", "ENSP2", "ENSP3"},
		{"ENSP4", "ENSP5", "ENSP6"},
		{"ENSP7"},
	}, batches)

	assert.Equal(t, known, mapping)
	for id := range mapping {
		assert.Contains(t, ids, id)
	}
}

func TestMapIDsRequestsAccessionOnly(t *testing.T) {
	fake := newFakeMapping(map[string]string{"ENSP1": "P00001"})
	u := newTestUniProt(t, fake)

	_, err := u.MapIDs(context.Background(), []string{"ENSP1"})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.queries, 1)
	q, err := url.ParseQuery(fake.queries[0])
	require.NoError(t, err)
	assert.Equal(t, "json", q.Get("format"))
	assert.Equal(t, "accession", q.Get("fields"))
}

func TestMapIDsResponseTooLarge(t *testing.T) {
	var streams atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/idmapping/run", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobId":"job0"}`)
	})
	mux.HandleFunc("/idmapping/status/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobStatus":"FINISHED"}`)
	})
	mux.HandleFunc("/idmapping/uniprotkb/results/stream/", func(w http.ResponseWriter, r *http.Request) {
		streams.Add(1)
		// The only match sits past the size limit
		filler := strings.Repeat(`{"from":"ENSP_OTHER","to":{"primaryAccession":"Z00000"}},`, 64)
		fmt.Fprintf(w, `{"results":[%s{"from":"ENSP1","to":{"primaryAccession":"P00001"}}]}`, filler)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.MaxBodySize = 1024
	u := NewUniProt(srv.URL, srv.Client(), cfg)
	u.BatchDelay = 0
	u.PollInterval = time.Millisecond

	mapping, err := u.MapIDs(context.Background(), []string{"ENSP1"})
	require.Error(t, err)
	assert.Nil(t, mapping)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.True(t, IsTransport(err))
	assert.Equal(t, int32(1), streams.Load(), "oversized bodies are not retried")
}

func TestMapIDsPausesBetweenBatches(t *testing.T) {
	fake := newFakeMapping(map[string]string{})
	u := newTestUniProt(t, fake)
	u.BatchSize = 1
	u.BatchDelay = 20 * time.Millisecond

	start := time.Now()
	_, err := u.MapIDs(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	assert.Len(t, fake.submitted(), 3)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestMapIDsEmpty(t *testing.T) {
	fake := newFakeMapping(nil)
	u := newTestUniProt(t, fake)

	mapping, err := u.MapIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, mapping)
	assert.Empty(t, fake.submitted())
}

func TestMapIDsTransportFailure(t *testing.T) {
	fake := newFakeMapping(nil)
	fake.runFails = true
	u := newTestUniProt(t, fake)

	_, err := u.MapIDs(context.Background(), []string{"ENSP1"})
	require.Error(t, err)
	assert.True(t, IsTransport(err), "got %v", err)
}

func TestMapIDsJobFailed(t *testing.T) {
	fake := newFakeMapping(nil)
	fake.status = "ERROR"
	u := newTestUniProt(t, fake)

	_, err := u.MapIDs(context.Background(), []string{"ENSP1"})
	require.Error(t, err)
	assert.True(t, IsTransport(err), "got %v", err)
}

func TestParseMappingResultsPlainTarget(t *testing.T) {
	body := []byte(`{"results":[{"from":"ENSP1","to":"P1"},{"from":"ENSP1","to":"P1-2"}]}`)
	assert.Equal(t, map[string]string{"ENSP1": "P1"}, parseMappingResults(body, []string{"ENSP1"}))
}

func TestMolecularWeight(t *testing.T) {
	var mu sync.Mutex
	flaky := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/uniprotkb/P12345.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"primaryAccession":"P12345","sequence":{"value":"MEEP","length":4,"molWeight":51234}}`)
	})
	mux.HandleFunc("/uniprotkb/P00000.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"messages":["not found"]}`, http.StatusNotFound)
	})
	mux.HandleFunc("/uniprotkb/PBROKEN.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sequence":{"value":"MEEP"`)
	})
	mux.HandleFunc("/uniprotkb/PNOWEIGHT.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sequence":{"value":"MEEP"}}`)
	})
	mux.HandleFunc("/uniprotkb/PFLAKY.json", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		flaky++
		n := flaky
		mu.Unlock()
		if n == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"sequence":{"molWeight":1000.5}}`)
	})
	mux.HandleFunc("/uniprotkb/PDOWN.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	u := newTestUniProt(t, mux)

	tests := []struct {
		accession string
		wantMW    float64
		wantFound bool
		wantErr   bool
	}{
		{"P12345", 51234, true, false},
		{"P00000", 0, false, false},
		{"PBROKEN", 0, false, false},
		{"PNOWEIGHT", 0, false, false},
		{"PFLAKY", 1000.5, true, false},
		{"PDOWN", 0, false, true},
		{"", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.accession, func(t *testing.T) {
			mw, found, err := u.MolecularWeight(context.Background(), tt.accession)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsTransport(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantMW, mw)
		})
	}
}

func TestMolecularWeightCanceled(t *testing.T) {
	u := newTestUniProt(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sequence":{"molWeight":1}}`)
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := u.MolecularWeight(ctx, "P1")
	require.Error(t, err)
	assert.False(t, IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}
