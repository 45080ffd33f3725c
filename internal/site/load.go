package site

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Load reads and decodes a whole scrape output file. A missing file or
// malformed JSON is returned as an error; nothing is partially decoded.
func Load(path string) ([]ScrapedSite, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read source %s: %w", path, err)
	}
	var sites []ScrapedSite
	if err := json.Unmarshal(raw, &sites); err != nil {
		return nil, nil, fmt.Errorf("decode source %s: %w", path, err)
	}
	return sites, raw, nil
}

// Decode reads a JSON array of sites from r.
func Decode(r io.Reader) ([]ScrapedSite, error) {
	var sites []ScrapedSite
	if err := json.NewDecoder(r).Decode(&sites); err != nil {
		return nil, fmt.Errorf("decode sites: %w", err)
	}
	return sites, nil
}

// Successful keeps the records whose scrape succeeded and carry data, in
// input order.
func Successful(sites []ScrapedSite) []ScrapedSite {
	out := make([]ScrapedSite, 0, len(sites))
	for _, s := range sites {
		if s.Success && s.Data != nil {
			out = append(out, s)
		}
	}
	return out
}
