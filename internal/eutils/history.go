package eutils

import (
	"context"

	"go.uber.org/zap"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// streamState tracks where an ArticleStream is in its lifecycle.
type streamState int

const (
	streamInitial streamState = iota
	streamFetching
	streamDone
)

// ArticleStream lazily pages a history-backed result set. The initial
// ESearch and each EFetch page happen on demand during Next, so a stream
// abandoned early costs only the pages actually read.
//
// Usage follows bufio.Scanner:
//
//	stream := client.SearchAll("cancer biomarker", 100)
//	for stream.Next(ctx) {
//	    article := stream.Article()
//	    ...
//	}
//	if err := stream.Err(); err != nil {
//	    ...
//	}
//
// A stream is single-use and not safe for concurrent Next calls.
type ArticleStream struct {
	client    *Client
	query     string
	batchSize int

	state   streamState
	session HistorySession
	total   int
	offset  int

	buf     []Article
	bufPos  int
	current Article
	err     error
}

// SearchAll returns a stream over every article matching the query,
// fetched through the history server in pages of batchSize. No network
// I/O happens until the first Next call.
func (c *Client) SearchAll(query string, batchSize int) *ArticleStream {
	if batchSize <= 0 {
		batchSize = fetchBatchSize
	}
	return &ArticleStream{client: c, query: query, batchSize: batchSize}
}

// Next advances the stream to the next article, fetching a new page when
// the buffer is exhausted. It returns false at end of results or on
// error; Err distinguishes the two.
func (s *ArticleStream) Next(ctx context.Context) bool {
	if s.err != nil || s.state == streamDone {
		return false
	}

	for {
		if s.bufPos < len(s.buf) {
			s.current = s.buf[s.bufPos]
			s.bufPos++
			return true
		}

		switch s.state {
		case streamInitial:
			if !s.start(ctx) {
				return false
			}
		case streamFetching:
			if !s.fetchPage(ctx) {
				return false
			}
		}
	}
}

// Article returns the article most recently yielded by Next.
func (s *ArticleStream) Article() Article {
	return s.current
}

// Err returns the first error encountered, or nil on clean exhaustion.
func (s *ArticleStream) Err() error {
	return s.err
}

// Total returns the match count reported by the initial search. It is
// zero until the first Next call.
func (s *ArticleStream) Total() int {
	return s.total
}

func (s *ArticleStream) start(ctx context.Context) bool {
	if s.query == "" {
		s.fail(&ncbi.QueryError{Message: "query is empty"})
		return false
	}

	result, err := s.client.SearchWithHistory(ctx, s.query, &SearchOptions{Limit: s.batchSize})
	if err != nil {
		s.fail(err)
		return false
	}
	if len(result.PMIDs) == 0 {
		s.state = streamDone
		return false
	}
	session, ok := result.Session()
	if !ok {
		s.fail(ncbi.ErrWebEnvNotAvailable)
		return false
	}

	s.session = session
	s.total = result.TotalCount
	s.state = streamFetching
	s.client.log.Debug("history stream opened",
		zap.Int("total", s.total), zap.Int("batch_size", s.batchSize))
	return true
}

func (s *ArticleStream) fetchPage(ctx context.Context) bool {
	if s.offset >= s.total {
		s.state = streamDone
		return false
	}

	batch, skipped, err := s.client.fetchHistoryPage(ctx, s.session, s.offset, s.batchSize)
	if err != nil {
		s.fail(err)
		return false
	}
	if len(batch)+skipped == 0 {
		// NCBI stopped returning records before the advertised total.
		s.state = streamDone
		return false
	}

	s.offset += len(batch) + skipped
	s.buf = batch
	s.bufPos = 0
	return true
}

func (s *ArticleStream) fail(err error) {
	s.err = err
	s.state = streamDone
}
