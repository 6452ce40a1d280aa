package eutils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

func TestFetchArticlesValidatesBeforeRequest(t *testing.T) {
	var requests atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	start := time.Now()
	_, err := c.FetchArticles(context.Background(), []string{"31978945", "invalid", "33515491"})
	elapsed := time.Since(start)

	var idErr *ncbi.InvalidIDError
	if !errors.As(err, &idErr) {
		t.Fatalf("err = %v, want InvalidIDError", err)
	}
	if idErr.Value != "invalid" {
		t.Errorf("value = %q, want %q", idErr.Value, "invalid")
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("made %d requests, want 0", n)
	}
	if elapsed > 100*time.Millisecond {
		t.Errorf("validation took %v, want < 100ms", elapsed)
	}
}

func TestFetchArticlesEmptyInput(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	articles, err := c.FetchArticles(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	if len(articles) != 0 {
		t.Errorf("articles = %v, want empty", articles)
	}
}

func TestFetchArticlesBatching(t *testing.T) {
	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, articleSetXML(articleXML("1", "T")))
	})
	c := newTestClient(t, mux)

	pmids := make([]string, 450)
	for i := range pmids {
		pmids[i] = strconv.Itoa(i + 1)
	}
	if _, err := c.FetchArticles(context.Background(), pmids); err != nil {
		t.Fatalf("FetchArticles: %v", err)
	}
	// 450 IDs at 200 per request.
	if n := requests.Load(); n != 3 {
		t.Errorf("made %d requests, want 3", n)
	}
}

func TestFetchArticleExactMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		// Response carries an unrelated record ahead of the requested one.
		fmt.Fprint(w, articleSetXML(
			articleXML("99999", "Unrelated"),
			articleXML("31978945", "Wanted"),
		))
	})
	c := newTestClient(t, mux)

	a, err := c.FetchArticle(context.Background(), "31978945")
	if err != nil {
		t.Fatalf("FetchArticle: %v", err)
	}
	if a.PMID != "31978945" || a.Title != "Wanted" {
		t.Errorf("article = %+v", a)
	}
}

func TestFetchArticleNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleSetXML())
	})
	c := newTestClient(t, mux)

	_, err := c.FetchArticle(context.Background(), "31978945")
	var nfErr *ncbi.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if nfErr.PMID != "31978945" {
		t.Errorf("pmid = %q", nfErr.PMID)
	}
}

func TestFetchFromHistoryError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<ERROR>WebEnv expired</ERROR>`)
	})
	c := newTestClient(t, mux)

	_, err := c.FetchFromHistory(context.Background(), HistorySession{WebEnv: "W1", QueryKey: "1"}, 0, 100)
	var histErr *ncbi.HistoryError
	if !errors.As(err, &histErr) {
		t.Fatalf("err = %v, want HistoryError", err)
	}
}

func TestFetchAllByPMIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/epost.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if r.PostForm.Get("db") != "pubmed" || r.PostForm.Get("id") == "" {
			t.Errorf("form = %v", r.PostForm)
		}
		fmt.Fprint(w, `<ePostResult><QueryKey>1</QueryKey><WebEnv>W42</WebEnv></ePostResult>`)
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("WebEnv") != "W42" || q.Get("query_key") != "1" {
			t.Errorf("session params = %v", q)
		}
		start, _ := strconv.Atoi(q.Get("retstart"))
		if start >= 3 {
			fmt.Fprint(w, articleSetXML())
			return
		}
		fmt.Fprint(w, articleSetXML(
			articleXML("1", "A"),
			articleXML("2", "B"),
			articleXML("3", "C"),
		))
	})
	c := newTestClient(t, mux)

	articles, err := c.FetchAllByPMIDs(context.Background(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("FetchAllByPMIDs: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("got %d articles, want 3", len(articles))
	}
}
