// Package report renders a ranked scoring run as CSV and uploads it.
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/guestpost-catalog/internal/fieldmap"
	"github.com/JakeFAU/guestpost-catalog/internal/site"
)

// ContentType is the MIME type of uploaded reports.
const ContentType = "text/csv"

// Header is the first CSV row.
var Header = []string{"rank", "domain", "slug", "score", "tier", "status", "reasons"}

// BlobStore receives rendered reports.
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// WriteCSV writes one row per site in the order given.
func WriteCSV(w io.Writer, ranked []site.ScoredSite) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range ranked {
		row := []string{
			strconv.Itoa(s.Rank),
			s.Site.Domain,
			fieldmap.Slug(s.Site.Domain),
			strconv.Itoa(s.Quality.Score),
			string(s.Quality.Tier),
			string(s.Status),
			strings.Join(s.Quality.Reasons, "; "),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", s.Rank, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ObjectPath names a report object, for example
// "catalog-runs/import/20250301T100000Z.csv".
func ObjectPath(prefix, label string, at time.Time) string {
	name := at.UTC().Format("20060102T150405Z") + ".csv"
	return path.Join(strings.Trim(prefix, "/"), label, name)
}

// Upload renders ranked and stores it at objectPath.
func Upload(ctx context.Context, store BlobStore, objectPath string, ranked []site.ScoredSite) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, ranked); err != nil {
		return "", err
	}
	uri, err := store.PutObject(ctx, objectPath, ContentType, &buf)
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}
	return uri, nil
}
