package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateUser inserts the credentials row and the profile row as one unit.
// If either insert fails the whole unit is rolled back and no user exists.
func (s *Store) CreateUser(ctx context.Context, in NewUser, nowMs int64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}
	if in.Gender < GenderMale || in.Gender > GenderUnspecified {
		return 0, fmt.Errorf("%w: gender", ErrInvalidValue)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	credQ := `INSERT INTO users_credentials (email, password, registration_time)
		VALUES (?, ?, ?) RETURNING user_id;`
	if err := tx.QueryRowContext(ctx, s.rebind(credQ), in.Email, in.Password, nowMs).Scan(&userID); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrEmailExists, in.Email)
		}
		return 0, err
	}

	profQ := `INSERT INTO users_profiles (user_id, first_name, middle_name, surname, prof_picture_id, age, gender)
		VALUES (?, ?, ?, ?, ?, ?, ?);`
	if _, err := tx.ExecContext(ctx, s.rebind(profQ),
		userID, in.FirstName, in.MiddleName, in.Surname, in.ProfPictureID, in.Age, in.Gender,
	); err != nil {
		switch {
		case isForeignKeyViolation(err):
			return 0, fmt.Errorf("%w: profile picture", ErrNotFound)
		case isCheckViolation(err):
			return 0, fmt.Errorf("%w: gender", ErrInvalidValue)
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}

// AuthenticateUser is an exact-match credentials lookup. Hashing and
// normalization are the caller's concern.
func (s *Store) AuthenticateUser(ctx context.Context, email, password string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}

	q := `SELECT user_id FROM users_credentials WHERE email = ? AND password = ?;`
	var userID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q), email, password).Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("%w: credentials", ErrNotFound)
		}
		return 0, err
	}
	return userID, nil
}

func (s *Store) GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentialsRow, error) {
	if s == nil || s.db == nil {
		return UserCredentialsRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT user_id, email, password, registration_time FROM users_credentials WHERE email = ?;`
	var row UserCredentialsRow
	if err := s.db.QueryRowContext(ctx, s.rebind(q), email).Scan(
		&row.UserID, &row.Email, &row.Password, &row.RegistrationTimeMs,
	); err != nil {
		if err == sql.ErrNoRows {
			return UserCredentialsRow{}, fmt.Errorf("%w: user", ErrNotFound)
		}
		return UserCredentialsRow{}, err
	}
	return row, nil
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("db not initialized")
	}

	q := `SELECT user_id FROM users_credentials WHERE email = ?;`
	var userID int64
	if err := s.db.QueryRowContext(ctx, s.rebind(q), email).Scan(&userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) GetUserProfile(ctx context.Context, userID int64) (UserProfileRow, error) {
	if s == nil || s.db == nil {
		return UserProfileRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT user_id, first_name, middle_name, surname, prof_picture_id, age, gender
		FROM users_profiles WHERE user_id = ?;`
	row := s.db.QueryRowContext(ctx, s.rebind(q), userID)
	profile, err := scanUserProfile(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return UserProfileRow{}, fmt.Errorf("%w: user", ErrNotFound)
		}
		return UserProfileRow{}, err
	}
	return profile, nil
}

func (s *Store) SearchUsers(ctx context.Context, firstName, surname string) ([]UserProfileRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT user_id, first_name, middle_name, surname, prof_picture_id, age, gender
		FROM users_profiles WHERE first_name LIKE ? AND surname LIKE ?;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), "%"+firstName+"%", "%"+surname+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []UserProfileRow
	for rows.Next() {
		profile, err := scanUserProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

// UpdateUser applies a partial update. The password lives in the credentials
// table and is updated with its own statement; profile columns are collected
// into one statement touching only the supplied fields. Matching the original
// behavior, a failing profile update does not undo an already-applied
// password change.
func (s *Store) UpdateUser(ctx context.Context, userID int64, upd UserUpdate) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}
	if upd.Gender.Set && (upd.Gender.Value < GenderMale || upd.Gender.Value > GenderUnspecified) {
		return fmt.Errorf("%w: gender", ErrInvalidValue)
	}

	if _, err := s.GetUserProfile(ctx, userID); err != nil {
		return err
	}

	if upd.Password.Set {
		q := `UPDATE users_credentials SET password = ? WHERE user_id = ?;`
		result, err := s.db.ExecContext(ctx, s.rebind(q), upd.Password.Value, userID)
		if err != nil {
			return err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
	}

	setClauses := ""
	var args []any
	addSet := func(column string, value any) {
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += column + " = ?"
		args = append(args, value)
	}
	if upd.FirstName.Set {
		addSet("first_name", upd.FirstName.Value)
	}
	if upd.MiddleName.Set {
		addSet("middle_name", upd.MiddleName.Value)
	}
	if upd.Surname.Set {
		addSet("surname", upd.Surname.Value)
	}
	if upd.ProfPictureID.Set {
		addSet("prof_picture_id", upd.ProfPictureID.Value)
	}
	if upd.Age.Set {
		addSet("age", upd.Age.Value)
	}
	if upd.Gender.Set {
		addSet("gender", upd.Gender.Value)
	}
	if setClauses == "" {
		return nil
	}

	args = append(args, userID)
	q := "UPDATE users_profiles SET " + setClauses + " WHERE user_id = ?;"
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: profile picture", ErrNotFound)
		case isCheckViolation(err):
			return fmt.Errorf("%w: gender", ErrInvalidValue)
		}
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}

// DeleteUser removes the credentials row; the profile and all other rows
// referencing the user go with it through the schema's cascade policy.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM users_credentials WHERE user_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), userID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: user", ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserProfile(r rowScanner) (UserProfileRow, error) {
	var profile UserProfileRow
	var middle sql.NullString
	var picture sql.NullInt64
	if err := r.Scan(
		&profile.UserID, &profile.FirstName, &middle, &profile.Surname,
		&picture, &profile.Age, &profile.Gender,
	); err != nil {
		return UserProfileRow{}, err
	}
	if middle.Valid {
		profile.MiddleName = &middle.String
	}
	if picture.Valid {
		profile.ProfPictureID = &picture.Int64
	}
	return profile, nil
}
