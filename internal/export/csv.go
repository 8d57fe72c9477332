// Package export renders finished auctions as CSV. It only reads teams.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/DoyleJ11/league-auction-backend/internal/engine"
)

// TeamSummary writes one block per team followed by a blank line.
func TeamSummary(w io.Writer, teams []engine.Team) error {
	cw := csv.NewWriter(w)
	for _, t := range teams {
		rows := [][]string{
			{"Team Name", "Total Spent", "Remaining Purse"},
			{t.Name, money(t.Spent()), money(t.Purse)},
			{"Player Name", "Bid Amount"},
		}
		if len(t.Players) == 0 {
			rows = append(rows, []string{"No players bought", "0"})
		}
		for _, p := range t.Players {
			rows = append(rows, []string{p.Name, money(p.BidAmount)})
		}
		rows = append(rows, []string{})
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("write team %q: %w", t.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// PlayerSummary writes every sold player with the team that bought them.
func PlayerSummary(w io.Writer, teams []engine.Team) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Player Name", "Position", "Sold To", "Bid Amount"}); err != nil {
		return err
	}
	for _, t := range teams {
		for _, p := range t.Players {
			if err := cw.Write([]string{p.Name, p.Position, t.Name, money(p.BidAmount)}); err != nil {
				return fmt.Errorf("write player %q: %w", p.Name, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v int64) string { return strconv.FormatInt(v, 10) }
