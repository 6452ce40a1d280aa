// Package ids parses and renders PubMed (PMID) and PubMed Central (PMCID)
// identifiers. Both are positive integers; PMCIDs carry a canonical "PMC"
// prefix when rendered.
package ids

import (
	"strconv"
	"strings"

	"github.com/pcrowe/entrez-go/internal/ncbi"
)

// PMID is a PubMed identifier.
type PMID int64

// PMCID is a PubMed Central identifier.
type PMCID int64

// ParsePMID parses a whitespace-trimmed decimal string into a PMID.
// Zero, negative, and non-digit inputs are rejected.
func ParsePMID(s string) (PMID, error) {
	trimmed := strings.TrimSpace(s)
	n, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ncbi.InvalidIDError{Kind: "PMID", Value: s}
	}
	return PMID(n), nil
}

// String renders the PMID as bare digits.
func (p PMID) String() string {
	return strconv.FormatInt(int64(p), 10)
}

// ParsePMCID parses a PMC identifier with an optional case-insensitive
// "PMC" prefix. "PMC7906746", "pmc7906746", and "7906746" are equivalent.
func ParsePMCID(s string) (PMCID, error) {
	trimmed := strings.TrimSpace(s)
	digits := trimmed
	if len(trimmed) >= 3 && strings.EqualFold(trimmed[:3], "PMC") {
		digits = trimmed[3:]
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ncbi.InvalidIDError{Kind: "PMCID", Value: s}
	}
	return PMCID(n), nil
}

// String renders the PMCID canonically as "PMC<digits>".
func (p PMCID) String() string {
	return "PMC" + strconv.FormatInt(int64(p), 10)
}

// Digits renders the PMCID without the PMC prefix, as E-utilities id
// parameters expect.
func (p PMCID) Digits() string {
	return strconv.FormatInt(int64(p), 10)
}

// ValidatePMIDs parses every element of the list, failing on the first
// invalid entry. Used to reject a whole batch before any network I/O.
func ValidatePMIDs(pmids []string) ([]PMID, error) {
	out := make([]PMID, 0, len(pmids))
	for _, s := range pmids {
		id, err := ParsePMID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
