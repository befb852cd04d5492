// ABOUTME: Chemical CRUD and search queries against the chemicals table
// ABOUTME: Deletion cascades batch removal inside a single transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const chemicalColumns = `id, name, formula, cas_number, manufacturer, supplier, purity,
	quantity, unit, hazard_class, storage_conditions, expiration_date, arrival_date, notes, created_at`

// CreateChemical inserts a chemical and returns its assigned id.
func (s *SQLiteStore) CreateChemical(ctx context.Context, c *Chemical) (int64, error) {
	query := `
		INSERT INTO chemicals (name, formula, cas_number, manufacturer, supplier, purity,
			quantity, unit, hazard_class, storage_conditions, expiration_date, arrival_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, query,
		c.Name,
		nullString(c.Formula),
		nullString(c.CASNumber),
		nullString(c.Manufacturer),
		nullString(c.Supplier),
		c.Purity,
		c.Quantity,
		c.Unit,
		c.HazardClass,
		nullString(c.StorageConditions),
		nullDate(c.ExpirationDate),
		nullDate(c.ArrivalDate),
		nullString(c.Notes),
		formatTime(c.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting chemical: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading chemical id: %w", err)
	}

	s.logger.Debug("created chemical", "id", id, "name", c.Name)
	return id, nil
}

// GetChemical retrieves a chemical by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) GetChemical(ctx context.Context, id int64) (*Chemical, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chemicalColumns+` FROM chemicals WHERE id = ?`, id)

	c, err := scanChemical(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying chemical: %w", err)
	}
	return c, nil
}

// UpdateChemical overwrites all mutable fields of a chemical by id.
// Returns ErrNotFound if no row matches. Related batches are untouched.
func (s *SQLiteStore) UpdateChemical(ctx context.Context, c *Chemical) error {
	query := `
		UPDATE chemicals
		SET name = ?, formula = ?, cas_number = ?, manufacturer = ?, supplier = ?,
			purity = ?, quantity = ?, unit = ?, hazard_class = ?, storage_conditions = ?,
			expiration_date = ?, notes = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		c.Name,
		nullString(c.Formula),
		nullString(c.CASNumber),
		nullString(c.Manufacturer),
		nullString(c.Supplier),
		c.Purity,
		c.Quantity,
		c.Unit,
		c.HazardClass,
		nullString(c.StorageConditions),
		nullDate(c.ExpirationDate),
		nullString(c.Notes),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating chemical: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("updated chemical", "id", c.ID)
	return nil
}

// DeleteChemical removes a chemical and all batches referencing it inside
// one transaction. Either both deletions take effect or neither does.
func (s *SQLiteStore) DeleteChemical(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE chemical_id = ?`, id); err != nil {
			return fmt.Errorf("deleting batches for chemical: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM chemicals WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting chemical: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("deleted chemical", "id", id)
	return nil
}

// ListChemicals returns all chemicals ordered by name.
func (s *SQLiteStore) ListChemicals(ctx context.Context) ([]*Chemical, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chemicalColumns+` FROM chemicals ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying chemicals: %w", err)
	}
	defer rows.Close()

	return collectChemicals(rows)
}

// SearchChemicals returns chemicals matching a case-insensitive substring
// across name, formula, CAS number, manufacturer and supplier, AND'd with an
// exact hazard-class match when hazardClass is positive. With no predicate it
// returns all chemicals. Results are ordered by name.
func (s *SQLiteStore) SearchChemicals(ctx context.Context, text string, hazardClass int) ([]*Chemical, error) {
	query := `SELECT ` + chemicalColumns + ` FROM chemicals`
	var conds []string
	var args []any

	if text != "" {
		conds = append(conds, `(name LIKE ? OR formula LIKE ? OR cas_number LIKE ?
			OR manufacturer LIKE ? OR supplier LIKE ?)`)
		pattern := "%" + text + "%"
		args = append(args, pattern, pattern, pattern, pattern, pattern)
	}
	if hazardClass > 0 {
		conds = append(conds, `hazard_class = ?`)
		args = append(args, hazardClass)
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chemicals: %w", err)
	}
	defer rows.Close()

	return collectChemicals(rows)
}

// ListChemicalsByZone returns the chemicals that have at least one batch
// placed in the given zone.
func (s *SQLiteStore) ListChemicalsByZone(ctx context.Context, zoneID int64) ([]*Chemical, error) {
	query := `
		SELECT DISTINCT c.id, c.name, c.formula, c.cas_number, c.manufacturer, c.supplier,
			c.purity, c.quantity, c.unit, c.hazard_class, c.storage_conditions,
			c.expiration_date, c.arrival_date, c.notes, c.created_at
		FROM chemicals c
		JOIN batches b ON c.id = b.chemical_id
		WHERE b.zone_id = ?
		ORDER BY c.name
	`

	rows, err := s.db.QueryContext(ctx, query, zoneID)
	if err != nil {
		return nil, fmt.Errorf("querying chemicals by zone: %w", err)
	}
	defer rows.Close()

	return collectChemicals(rows)
}

// CountChemicals returns the number of chemical rows.
func (s *SQLiteStore) CountChemicals(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chemicals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chemicals: %w", err)
	}
	return n, nil
}

// scanChemical scans one chemical row from a row or rows scanner.
func scanChemical(scanner interface{ Scan(dest ...any) error }) (*Chemical, error) {
	var c Chemical
	var formula, cas, manufacturer, supplier, storage, expDate, arrDate, notes *string
	var createdAt string

	err := scanner.Scan(
		&c.ID,
		&c.Name,
		&formula,
		&cas,
		&manufacturer,
		&supplier,
		&c.Purity,
		&c.Quantity,
		&c.Unit,
		&c.HazardClass,
		&storage,
		&expDate,
		&arrDate,
		&notes,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.Formula = deref(formula)
	c.CASNumber = deref(cas)
	c.Manufacturer = deref(manufacturer)
	c.Supplier = deref(supplier)
	c.StorageConditions = deref(storage)
	c.Notes = deref(notes)
	c.ExpirationDate = parseDate(expDate)
	c.ArrivalDate = parseDate(arrDate)
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func collectChemicals(rows *sql.Rows) ([]*Chemical, error) {
	var chemicals []*Chemical
	for rows.Next() {
		c, err := scanChemical(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chemical row: %w", err)
		}
		chemicals = append(chemicals, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chemical rows: %w", err)
	}
	return chemicals, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
