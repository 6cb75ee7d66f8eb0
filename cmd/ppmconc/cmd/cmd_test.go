package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/ChrisMcGann/ppmconc/pkg/reader"
	"github.com/ChrisMcGann/ppmconc/pkg/remote"
	"github.com/ChrisMcGann/ppmconc/pkg/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"format", fmt.Errorf("open: %w", &reader.FormatError{Shape: "xlsx"}), ExitFormat},
		{"transport", fmt.Errorf("resolve: %w", &remote.TransportError{Service: "uniprot", Err: errors.New("503")}), ExitTransport},
		{"unresolved", fmt.Errorf("convert: %w", convert.ErrUnresolvedWeight), ExitComputation},
		{"empty collection", convert.ErrEmptyCollection, ExitComputation},
		{"sequence", &core.SequenceError{Residue: 'X', Position: 3}, ExitComputation},
		{"other", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "9606-paxdb.txt")
	input := "#name: H.sapiens - Whole organism\n" +
		"9606.ENSP00000000233\t210\n" +
		"9606.ENSP00000000412\t45.5\n" +
		"9606.ENSP00000000233\t12\n"
	require.NoError(t, os.WriteFile(path, []byte(input), 0o644))

	report, err := validateFile(path, reader.Options{Species: 9606})
	require.NoError(t, err)
	assert.Equal(t, reader.FormatPAXdb, report.Format)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.Unique)
	assert.Equal(t, 1, report.Duplicates)
	assert.True(t, report.OK())
}

// fakeServices serves just enough of the UniProt and Ensembl APIs for a run.
func fakeServices(t *testing.T, weights map[string]float64, sequences map[string]string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/idmapping/run", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"jobId":"job-%s"}`, strings.ReplaceAll(r.Form.Get("ids"), ",", "_"))
	})
	mux.HandleFunc("/idmapping/status/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"jobStatus":"FINISHED"}`)
	})
	mux.HandleFunc("/idmapping/uniprotkb/results/stream/", func(w http.ResponseWriter, r *http.Request) {
		job := strings.TrimPrefix(r.URL.Path, "/idmapping/uniprotkb/results/stream/")
		ids := strings.Split(strings.TrimPrefix(job, "job-"), "_")

		var results []string
		for _, id := range ids {
			if _, ok := weights["UP-"+id]; ok {
				results = append(results, fmt.Sprintf(`{"from":%q,"to":{"primaryAccession":%q}}`, id, "UP-"+id))
			}
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(results, ","))
	})
	mux.HandleFunc("/uniprotkb/", func(w http.ResponseWriter, r *http.Request) {
		acc := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/uniprotkb/"), ".json")
		mw, ok := weights[acc]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"primaryAccession":%q,"sequence":{"molWeight":%g}}`, acc, mw)
	})
	mux.HandleFunc("/sequence/id/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/sequence/id/")
		seq, ok := sequences[id]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"ID not found"}`)
			return
		}
		fmt.Fprintf(w, `{"id":%q,"seq":%q,"molecule":"protein"}`, id, seq)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestConvertCommand(t *testing.T) {
	srv := fakeServices(t,
		map[string]float64{"UP-ENSP1": 50000, "UP-ENSP2": 50000},
		map[string]string{"ENSP3": "MAAVAAVAAR"},
	)

	dir := t.TempDir()
	input := filepath.Join(dir, "9606-paxdb.txt")
	require.NoError(t, os.WriteFile(input, []byte(
		"#name: test\n9606.ENSP1\t50000\n9606.ENSP2\t50000\n9606.ENSP4\t10\n"), 0o644))
	output := filepath.Join(dir, "out.csv")

	rootCmd.SetArgs([]string{
		"convert", input, output,
		"--uniprot-url", srv.URL,
		"--ensembl-url", srv.URL,
		"--total-protein-content", "1.0",
		"--batch-delay", "0s",
		"--rate", "0",
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	rows, err := writer.Read(output)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ENSP1", rows[0].ENSPID)
	assert.Equal(t, "UP-ENSP1", rows[0].UniProtID)
	assert.Equal(t, 0.5, rows[0].Mass)
	assert.Equal(t, 0.5, rows[1].Mass)
}

func TestPrintSources(t *testing.T) {
	sources := []convert.SourceCount{{Source: "uniprot", Count: 3}, {Source: "sequence", Count: 1}}

	var buf bytes.Buffer
	printSources(&buf, writer.SQLite, sources)
	assert.Contains(t, buf.String(), "uniprot")
	assert.Contains(t, buf.String(), "sequence")

	for _, kind := range []writer.Kind{writer.CSV, writer.TSV} {
		buf.Reset()
		printSources(&buf, kind, []convert.SourceCount{{Source: "unknown", Count: 4}})
		assert.NotContains(t, buf.String(), "unknown", kind.String())
		assert.Contains(t, buf.String(), "SQLite output only")
	}
}
