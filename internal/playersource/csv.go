package playersource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
)

var ErrMissingColumns = errors.New(`CSV must contain "Name", "Position", and "Photo URL" (or "Photo") columns`)

var photoHeaders = []string{"photourl", "photo url", "photo"}

var driveFileRe = regexp.MustCompile(`drive\.google\.com/file/d/([^/?#]+)`)

// Parse reads a player list with a header row. Rows missing a name,
// position or photo are skipped. elite marks every parsed player.
func Parse(r io.Reader, elite bool) ([]engine.Player, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingColumns
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	nameIdx := slices.Index(header, "name")
	posIdx := slices.Index(header, "position")
	photoIdx := -1
	for _, h := range photoHeaders {
		if photoIdx = slices.Index(header, h); photoIdx != -1 {
			break
		}
	}
	if nameIdx == -1 || posIdx == -1 || photoIdx == -1 {
		return nil, ErrMissingColumns
	}

	players := []engine.Player{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		p := engine.Player{
			Name:     field(rec, nameIdx),
			Position: field(rec, posIdx),
			PhotoURL: DirectPhotoURL(field(rec, photoIdx)),
			IsElite:  elite,
		}
		if p.Name == "" || p.Position == "" || p.PhotoURL == "" {
			continue
		}
		players = append(players, p)
	}
	return players, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// DirectPhotoURL turns a Google Drive share link into a direct view link.
// Anything else is returned unchanged.
func DirectPhotoURL(url string) string {
	m := driveFileRe.FindStringSubmatch(url)
	if m == nil {
		return url
	}
	return "https://drive.google.com/uc?export=view&id=" + m[1]
}
