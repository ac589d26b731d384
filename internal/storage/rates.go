package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// AddRateToStatus records one user's rate for a status. A user rates a status
// at most once; a second rate for the same (status, user) pair is rejected
// regardless of its value.
func (s *Store) AddRateToStatus(ctx context.Context, statusID, userID, rate int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}
	if rate < RateMin || rate > RateMax {
		return 0, fmt.Errorf("%w: rate", ErrInvalidValue)
	}

	q := `INSERT INTO rates (status_id, user_id, rate) VALUES (?, ?, ?) RETURNING rate_id;`
	var rateID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q), statusID, userID, rate).Scan(&rateID); err != nil {
		switch {
		case isUniqueViolation(err):
			return 0, fmt.Errorf("%w: rate", ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return 0, fmt.Errorf("%w: status or user", ErrNotFound)
		case isCheckViolation(err):
			return 0, fmt.Errorf("%w: rate", ErrInvalidValue)
		}
		return 0, err
	}
	return rateID, nil
}

func (s *Store) GetRate(ctx context.Context, rateID int64) (RateRow, error) {
	if s == nil || s.db == nil {
		return RateRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT rate_id, status_id, user_id, rate FROM rates WHERE rate_id = ?;`
	var rate RateRow
	if err := s.db.QueryRowContext(ctx, s.rebind(q), rateID).Scan(
		&rate.RateID, &rate.StatusID, &rate.UserID, &rate.Rate,
	); err != nil {
		if err == sql.ErrNoRows {
			return RateRow{}, fmt.Errorf("%w: rate", ErrNotFound)
		}
		return RateRow{}, err
	}
	return rate, nil
}

func (s *Store) ListRatesForStatus(ctx context.Context, statusID int64) ([]RateRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT rate_id, status_id, user_id, rate FROM rates WHERE status_id = ?;`
	return s.queryRates(ctx, q, statusID)
}

func (s *Store) ListRatesForUser(ctx context.Context, userID int64) ([]RateRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT rate_id, status_id, user_id, rate FROM rates WHERE user_id = ?;`
	return s.queryRates(ctx, q, userID)
}

// UpdateRateValue changes a rate to a different value. Setting the value it
// already has counts as no change and fails, mirroring the "did anything
// change" idiom used across the mutators.
func (s *Store) UpdateRateValue(ctx context.Context, rateID, rate int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}
	if rate < RateMin || rate > RateMax {
		return fmt.Errorf("%w: rate", ErrInvalidValue)
	}

	q := `UPDATE rates SET rate = ? WHERE rate_id = ? AND rate != ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), rate, rateID, rate)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: rate", ErrInvalidValue)
		}
		return err
	}
	affected, _ := result.RowsAffected()
	if affected > 0 {
		return nil
	}

	if _, err := s.GetRate(ctx, rateID); err != nil {
		return err
	}
	return fmt.Errorf("%w: rate", ErrNoChange)
}

func (s *Store) DeleteRate(ctx context.Context, rateID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM rates WHERE rate_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), rateID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: rate", ErrNotFound)
	}
	return nil
}

func (s *Store) queryRates(ctx context.Context, q string, args ...any) ([]RateRow, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rates []RateRow
	for rows.Next() {
		var rate RateRow
		if err := rows.Scan(&rate.RateID, &rate.StatusID, &rate.UserID, &rate.Rate); err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rates, nil
}
