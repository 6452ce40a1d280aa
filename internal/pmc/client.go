package pmc

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pcrowe/entrez-go/internal/ids"
	"github.com/pcrowe/entrez-go/internal/ncbi"
	"github.com/pcrowe/entrez-go/internal/xmlutil"
)

// DefaultOABaseURL is the base URL of the PMC open-access subset service.
const DefaultOABaseURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/oa"

// Client retrieves PMC full-text articles and OA subset records. It embeds
// ncbi.BaseClient, so the rate limiter covers both the E-utilities and the
// OA service endpoints.
type Client struct {
	*ncbi.BaseClient
	oaBaseURL string
	log       *zap.Logger
}

// NewClient creates a PMC client with the given base options.
func NewClient(opts ...ncbi.Option) *Client {
	return &Client{
		BaseClient: ncbi.NewBaseClient(opts...),
		oaBaseURL:  DefaultOABaseURL,
		log:        zap.NewNop(),
	}
}

// NewClientWithBase creates a PMC client over an existing base client so
// that the rate limiter is shared with other NCBI clients.
func NewClientWithBase(base *ncbi.BaseClient) *Client {
	return &Client{BaseClient: base, oaBaseURL: DefaultOABaseURL, log: zap.NewNop()}
}

// WithOABaseURL points the OA subset service at a different base URL.
func (c *Client) WithOABaseURL(u string) *Client {
	c.oaBaseURL = u
	return c
}

// WithLogger sets the logger used for parse diagnostics.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l != nil {
		c.log = l
	}
	return c
}

// FetchArticle retrieves and parses the JATS full text for a PMC ID.
func (c *Client) FetchArticle(ctx context.Context, pmcid string) (*FullTextArticle, error) {
	id, err := ids.ParsePMCID(pmcid)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("db", "pmc")
	params.Set("id", id.Digits())
	params.Set("retmode", "xml")

	body, err := c.DoGet(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	doc := string(body)
	if !strings.Contains(doc, "<article") {
		return nil, &ncbi.PMCNotAvailableError{PMCID: id.String()}
	}
	if msg, ok := xmlutil.ExtractTag(doc, "ERROR"); ok {
		c.log.Warn("efetch returned an error body for PMC article",
			zap.String("pmcid", id.String()), zap.String("error", msg))
		return nil, &ncbi.PMCNotAvailableError{PMCID: id.String()}
	}

	article := parseArticle(doc)
	article.PMCID = id.String()
	return article, nil
}

// IsOASubset queries the OA subset service for a PMC ID. An error element
// in the response (typically code "idIsNotOpenAccess") yields an OAInfo
// with Available=false rather than a failure.
func (c *Client) IsOASubset(ctx context.Context, pmcid string) (*OAInfo, error) {
	id, err := ids.ParsePMCID(pmcid)
	if err != nil {
		return nil, err
	}

	// The OA service lives outside the E-utilities base URL. A shallow copy
	// keeps the limiter, transport, retry policy, and credentials shared.
	oa := *c.BaseClient
	oa.BaseURL = c.oaBaseURL

	params := url.Values{}
	params.Set("id", id.String())

	body, err := oa.DoGet(ctx, "oa.fcgi", params)
	if err != nil {
		return nil, err
	}

	doc := string(body)
	info := &OAInfo{PMCID: id.String()}

	if errBlock, ok := firstBlock(doc, "error"); ok {
		info.ErrorCode = xmlutil.Attr(errBlock, "code")
		return info, nil
	}

	record, ok := firstBlock(doc, "record")
	if !ok {
		return info, nil
	}
	info.Available = true
	info.Citation = xmlutil.Attr(record, "citation")
	info.License = xmlutil.Attr(record, "license")
	info.Retracted = strings.EqualFold(xmlutil.Attr(record, "retracted"), "yes")
	for _, link := range xmlutil.FindTagBlocks(record, "link") {
		href := xmlutil.Attr(link, "href")
		if href == "" {
			continue
		}
		info.Links = append(info.Links, OALink{
			URL:     href,
			Format:  xmlutil.Attr(link, "format"),
			Updated: xmlutil.Attr(link, "updated"),
		})
	}
	return info, nil
}

func firstBlock(doc, tag string) (string, bool) {
	blocks := xmlutil.FindTagBlocks(doc, tag)
	if len(blocks) == 0 {
		return "", false
	}
	return blocks[0], true
}
