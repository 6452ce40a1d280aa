package eutils

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

type einfoListResponse struct {
	Error  string `json:"error"`
	Result struct {
		DbList []string `json:"dblist"`
	} `json:"einforesult"`
}

type einfoDBResponse struct {
	Error  string `json:"error"`
	Result struct {
		DbInfo []struct {
			DbName      string `json:"dbname"`
			MenuName    string `json:"menuname"`
			Description string `json:"description"`
			Count       string `json:"count"`
			LastUpdate  string `json:"lastupdate"`
		} `json:"dbinfo"`
	} `json:"einforesult"`
}

// GetDatabaseList returns the names of all Entrez databases.
func (c *Client) GetDatabaseList(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("retmode", "json")

	body, err := c.DoGet(ctx, "einfo.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp einfoListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "einfo", Err: err}
	}
	if resp.Error != "" {
		return nil, &ncbi.APIError{Status: 200, Message: resp.Error}
	}
	if resp.Result.DbList == nil {
		return []string{}, nil
	}
	return resp.Result.DbList, nil
}

// GetDatabaseInfo returns metadata for one Entrez database. An empty name
// is rejected before any network I/O.
func (c *Client) GetDatabaseInfo(ctx context.Context, db string) (*DatabaseInfo, error) {
	if db == "" {
		return nil, &ncbi.QueryError{Message: "database name is empty"}
	}

	params := url.Values{}
	params.Set("db", db)
	params.Set("retmode", "json")

	body, err := c.DoGet(ctx, "einfo.fcgi", params)
	if err != nil {
		return nil, err
	}

	var resp einfoDBResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ncbi.JSONError{Endpoint: "einfo", Err: err}
	}
	if resp.Error != "" {
		return nil, &ncbi.APIError{Status: 200, Message: resp.Error}
	}
	if len(resp.Result.DbInfo) == 0 {
		return nil, &ncbi.APIError{Status: 200, Message: "no database info for " + db}
	}

	info := resp.Result.DbInfo[0]
	count, _ := strconv.Atoi(info.Count)
	return &DatabaseInfo{
		Name:        info.DbName,
		MenuName:    info.MenuName,
		Description: info.Description,
		Count:       count,
		LastUpdate:  info.LastUpdate,
	}, nil
}
