package remote

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultEnsemblURL is the Ensembl REST API root.
const DefaultEnsemblURL = "https://rest.ensembl.org"

// SpeciesAliases maps NCBI taxon ids to Ensembl species names.
var SpeciesAliases = map[int]string{
	9606:  "homo_sapiens",
	10090: "mus_musculus",
	10116: "rattus_norvegicus",
	7955:  "danio_rerio",
	9913:  "bos_taurus",
	9031:  "gallus_gallus",
	9823:  "sus_scrofa",
	9544:  "macaca_mulatta",
	7227:  "drosophila_melanogaster",
	6239:  "caenorhabditis_elegans",
	4932:  "saccharomyces_cerevisiae",
}

// Ensembl fetches protein sequences by Ensembl stable identifier.
type Ensembl struct {
	BaseURL string
	svc     *Service
}

// NewEnsembl creates an Ensembl client.
func NewEnsembl(baseURL string, client *http.Client, cfg Config) *Ensembl {
	if baseURL == "" {
		baseURL = DefaultEnsemblURL
	}
	return &Ensembl{
		BaseURL: strings.TrimRight(baseURL, "/"),
		svc:     NewService("ensembl", client, cfg),
	}
}

// Sequence returns the protein sequence of id. found is false when Ensembl
// has no match or the response is malformed; an error is returned only for
// transport failure. Unknown species are not sent, stable ids are unique.
func (e *Ensembl) Sequence(ctx context.Context, id string, species int) (seq string, found bool, err error) {
	if id == "" {
		return "", false, nil
	}

	query := url.Values{}
	query.Set("type", "protein")
	if alias, ok := SpeciesAliases[species]; ok {
		query.Set("species", alias)
	}
	target := e.BaseURL + "/sequence/id/" + url.PathEscape(id) + "?" + query.Encode()

	resp, err := e.svc.Do(ctx, "sequence "+id, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return "", false, err
	}
	if !resp.OK() {
		e.svc.log.Debugf("sequence %s: status %d, treating as not found", id, resp.StatusCode)
		return "", false, nil
	}

	s := gjson.GetBytes(resp.Body, "seq")
	if !gjson.ValidBytes(resp.Body) || s.Type != gjson.String || s.String() == "" {
		e.svc.log.Debugf("sequence %s: no sequence in response", id)
		return "", false, nil
	}

	return s.String(), true, nil
}
