package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DefaultUniProtURL is the UniProt REST API root.
	DefaultUniProtURL = "https://rest.uniprot.org"

	// Mapping vocabularies
	FromEnsemblProtein = "Ensembl_Protein"
	ToUniProtKB        = "UniProtKB"
)

// UniProt resolves Ensembl protein IDs to UniProtKB accessions and
// accessions to molecular weights.
type UniProt struct {
	BaseURL      string
	From, To     string
	BatchSize    int           // Identifiers per mapping job
	BatchDelay   time.Duration // Pause between mapping jobs
	PollInterval time.Duration // Pause between job status checks
	MaxPolls     int

	svc *Service
}

// NewUniProt creates a UniProt client with the default mapping settings.
func NewUniProt(baseURL string, client *http.Client, cfg Config) *UniProt {
	if baseURL == "" {
		baseURL = DefaultUniProtURL
	}
	return &UniProt{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		From:         FromEnsemblProtein,
		To:           ToUniProtKB,
		BatchSize:    500,
		BatchDelay:   time.Second,
		PollInterval: 3 * time.Second,
		MaxPolls:     100,
		svc:          NewService("uniprot", client, cfg),
	}
}

// MapIDs maps ids to accessions in consecutive batches, pausing BatchDelay
// between batches. Identifiers without a match are absent from the result.
// A failed batch fails the whole mapping.
func (u *UniProt) MapIDs(ctx context.Context, ids []string) (map[string]string, error) {
	batches := Batches(ids, u.BatchSize)
	mapping := make(map[string]string, len(ids))

	for i, batch := range batches {
		if i > 0 {
			if err := sleep(ctx, u.BatchDelay); err != nil {
				return nil, err
			}
		}

		res, err := u.mapBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("mapping batch %d/%d: %w", i+1, len(batches), err)
		}
		u.svc.log.Debugf("batch %d/%d: mapped %d of %d identifiers", i+1, len(batches), len(res), len(batch))

		for id, acc := range res {
			mapping[id] = acc
		}
	}

	return mapping, nil
}

// mapBatch submits one ID mapping job, waits for it and collects its results.
func (u *UniProt) mapBatch(ctx context.Context, batch []string) (map[string]string, error) {
	jobID, err := u.submitJob(ctx, batch)
	if err != nil {
		return nil, err
	}

	if err := u.waitJob(ctx, jobID); err != nil {
		return nil, err
	}

	resp, err := u.svc.Do(ctx, "mapping results", u.get("/idmapping/uniprotkb/results/stream/"+url.PathEscape(jobID)+"?format=json&fields=accession"))
	if err != nil {
		return nil, err
	}
	if !resp.OK() || !gjson.ValidBytes(resp.Body) {
		return nil, u.jobError("mapping results", jobID, fmt.Sprintf("status %d", resp.StatusCode))
	}

	return parseMappingResults(resp.Body, batch), nil
}

func (u *UniProt) submitJob(ctx context.Context, batch []string) (string, error) {
	form := url.Values{}
	form.Set("from", u.From)
	form.Set("to", u.To)
	form.Set("ids", strings.Join(batch, ","))

	resp, err := u.svc.Do(ctx, "mapping run", func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/idmapping/run", strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	jobID := gjson.GetBytes(resp.Body, "jobId").String()
	if !resp.OK() || jobID == "" {
		return "", &TransportError{
			Service: u.svc.Name,
			Op:      "mapping run",
			Err:     fmt.Errorf("no job id in response (status %d)", resp.StatusCode),
		}
	}
	return jobID, nil
}

// waitJob polls the job status until it leaves the NEW/RUNNING states. A
// finished job is answered with a redirect to its results, which carry no
// jobStatus field.
func (u *UniProt) waitJob(ctx context.Context, jobID string) error {
	for poll := 0; u.MaxPolls <= 0 || poll < u.MaxPolls; poll++ {
		resp, err := u.svc.Do(ctx, "mapping status", u.get("/idmapping/status/"+url.PathEscape(jobID)))
		if err != nil {
			return err
		}
		if !resp.OK() {
			return u.jobError("mapping status", jobID, fmt.Sprintf("status %d", resp.StatusCode))
		}

		status := gjson.GetBytes(resp.Body, "jobStatus")
		switch {
		case !status.Exists(), status.String() == "FINISHED":
			return nil
		case status.String() == "NEW", status.String() == "RUNNING":
			if err := sleep(ctx, u.PollInterval); err != nil {
				return err
			}
		default:
			return u.jobError("mapping status", jobID, "job status "+status.String())
		}
	}

	return u.jobError("mapping status", jobID, fmt.Sprintf("not finished after %d polls", u.MaxPolls))
}

func (u *UniProt) jobError(op, jobID, msg string) error {
	return &TransportError{
		Service: u.svc.Name,
		Op:      op,
		Err:     fmt.Errorf("job %s: %s", jobID, msg),
	}
}

// parseMappingResults reads results[].from -> results[].to. Only identifiers
// of the submitted batch are kept; for one-to-many matches the first wins.
func parseMappingResults(body []byte, batch []string) map[string]string {
	submitted := make(map[string]struct{}, len(batch))
	for _, id := range batch {
		submitted[id] = struct{}{}
	}

	out := make(map[string]string)
	gjson.GetBytes(body, "results").ForEach(func(_, r gjson.Result) bool {
		from := r.Get("from").String()
		if _, ok := submitted[from]; !ok {
			return true
		}
		if _, dup := out[from]; dup {
			return true
		}

		to := r.Get("to")
		acc := to.String()
		if to.IsObject() {
			acc = to.Get("primaryAccession").String()
		}
		if acc != "" {
			out[from] = acc
		}
		return true
	})
	return out
}

// MolecularWeight returns the molecular weight of an accession in Dalton.
// found is false when the entry does not exist or carries no usable weight;
// an error is returned only for transport failure.
func (u *UniProt) MolecularWeight(ctx context.Context, accession string) (mw float64, found bool, err error) {
	if accession == "" {
		return 0, false, nil
	}

	resp, err := u.svc.Do(ctx, "entry "+accession, u.get("/uniprotkb/"+url.PathEscape(accession)+".json"))
	if err != nil {
		return 0, false, err
	}
	if !resp.OK() {
		u.svc.log.Debugf("entry %s: status %d, treating as not found", accession, resp.StatusCode)
		return 0, false, nil
	}

	weight := gjson.GetBytes(resp.Body, "sequence.molWeight")
	if !gjson.ValidBytes(resp.Body) || weight.Type != gjson.Number || weight.Float() <= 0 {
		u.svc.log.Debugf("entry %s: no molecular weight in response", accession)
		return 0, false, nil
	}

	return weight.Float(), true, nil
}

func (u *UniProt) get(path string) RequestFunc {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.BaseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
