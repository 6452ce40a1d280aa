package mesh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

const meshSearchFixture = `{"header":{"type":"esearch","version":"0.3"},"esearchresult":{"count":"1","retmax":"20","retstart":"0","idlist":["68005600"]}}`

const meshFetchFixture = `
1: Fragile X Syndrome

*NEWRECORD
RECTYPE = D
MH = Fragile X Syndrome
AQ = BL CF CI
ENTRY = FXS
ENTRY = Marker X Syndrome|T047|NON|EQV|NLM (1991)|900216|abbcdef
ENTRY = Martin-Bell Syndrome
MN = C10.597.606.360.320.322
MN = C16.131.260.830.300
MN = F03.625.539.400
MS = A condition characterized genotypically by mutation of the distal end of the long arm of the X chromosome.
AN = coordinate with specific manifestation
UI = D005600
`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	base := ncbi.NewBaseClient(
		ncbi.WithBaseURL(srv.URL),
		ncbi.WithRateLimit(1000),
	)
	return NewClient(base)
}

func TestLookup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("db") != "mesh" {
			t.Errorf("db = %q, want mesh", q.Get("db"))
		}
		if q.Get("term") != "Fragile X Syndrome" {
			t.Errorf("term = %q", q.Get("term"))
		}
		fmt.Fprint(w, meshSearchFixture)
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("db") != "mesh" || q.Get("id") != "68005600" {
			t.Errorf("query = %v", q)
		}
		fmt.Fprint(w, meshFetchFixture)
	})
	c := newTestClient(t, mux)

	record, err := c.Lookup(context.Background(), "Fragile X Syndrome")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if record.UI != "D005600" || record.Name != "Fragile X Syndrome" {
		t.Errorf("record = %+v", record)
	}
	if len(record.TreeNumbers) != 3 || record.TreeNumbers[0] != "C10.597.606.360.320.322" {
		t.Errorf("tree numbers = %v", record.TreeNumbers)
	}
	if !strings.Contains(record.ScopeNote, "X chromosome") {
		t.Errorf("scope note = %q", record.ScopeNote)
	}
	if record.Annotation == "" {
		t.Error("annotation empty")
	}
}

func TestLookupNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"esearchresult":{"count":"0","idlist":[]}}`)
	}))

	_, err := c.Lookup(context.Background(), "nonexistent_mesh_term_xyz")
	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nfErr.Term != "nonexistent_mesh_term_xyz" {
		t.Errorf("term = %q", nfErr.Term)
	}
}

func TestLookupEmptyTerm(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	_, err := c.Lookup(context.Background(), "")
	var queryErr *ncbi.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("err = %v, want QueryError", err)
	}
}

func TestParseRecord(t *testing.T) {
	record := parseRecord(meshFetchFixture)

	if record.UI != "D005600" {
		t.Errorf("ui = %q", record.UI)
	}
	if len(record.TreeNumbers) != 3 {
		t.Errorf("tree numbers = %v", record.TreeNumbers)
	}
	// Pipe-qualified entry terms keep only the term itself.
	want := []string{"FXS", "Marker X Syndrome", "Martin-Bell Syndrome"}
	if len(record.EntryTerms) != len(want) {
		t.Fatalf("entry terms = %v", record.EntryTerms)
	}
	for i, e := range want {
		if record.EntryTerms[i] != e {
			t.Errorf("entry term %d = %q, want %q", i, record.EntryTerms[i], e)
		}
	}
}
