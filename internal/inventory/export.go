// ABOUTME: CSV export of the chemical register
// ABOUTME: Semicolon-separated, one row per chemical ordered by name

package inventory

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"ID", "Name", "Formula", "CAS", "Manufacturer", "Quantity", "Unit", "HazardClass", "ExpirationDate",
}

// WriteChemicalsCSV writes the chemical register to w as semicolon-separated
// values in name order.
func (s *Service) WriteChemicalsCSV(ctx context.Context, w io.Writer) error {
	chemicals, err := s.store.ListChemicals(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, c := range chemicals {
		expiry := ""
		if !c.ExpirationDate.IsZero() {
			expiry = c.ExpirationDate.Format(time.DateOnly)
		}
		row := []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Formula,
			c.CASNumber,
			c.Manufacturer,
			strconv.FormatFloat(c.Quantity, 'f', -1, 64),
			c.Unit,
			strconv.Itoa(c.HazardClass),
			expiry,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportChemicalsCSV writes the register to a file at path and logs the export.
func (s *Service) ExportChemicalsCSV(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if err := s.WriteChemicalsCSV(ctx, f); err != nil {
		return err
	}

	s.audit(ctx, "CSV export", path)
	return nil
}
