package eutils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

func TestGlobalQuery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/egquery.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") != "crispr" {
			t.Errorf("term = %q", r.URL.Query().Get("term"))
		}
		fmt.Fprint(w, `<?xml version="1.0"?>
<Result>
  <Term>crispr</Term>
  <eGQueryResult>
    <ResultItem><DbName>pubmed</DbName><MenuName>PubMed</MenuName><Count>234567</Count><Status>Ok</Status></ResultItem>
    <ResultItem><DbName>pmc</DbName><MenuName>PubMed Central</MenuName><Count>89012</Count><Status>Ok</Status></ResultItem>
    <ResultItem><DbName>mesh</DbName><MenuName>MeSH</MenuName><Count>0</Count><Status>Term or Database is not found</Status></ResultItem>
  </eGQueryResult>
</Result>`)
	})
	c := newTestClient(t, mux)

	result, err := c.GlobalQuery(context.Background(), "crispr")
	if err != nil {
		t.Fatalf("GlobalQuery: %v", err)
	}
	if len(result.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(result.Results))
	}
	if nz := result.NonZero(); len(nz) != 2 {
		t.Errorf("NonZero = %d entries, want 2", len(nz))
	}
	count, ok := result.CountFor("pubmed")
	if !ok || count != 234567 {
		t.Errorf("CountFor(pubmed) = %d, %v", count, ok)
	}
	if _, ok := result.CountFor("books"); ok {
		t.Error("CountFor(books) should be absent")
	}
}

func TestGlobalQueryEmptyTerm(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	_, err := c.GlobalQuery(context.Background(), "")
	var queryErr *ncbi.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("err = %v, want QueryError", err)
	}
}
