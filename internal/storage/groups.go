package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGroup inserts the group and enrolls the creator as its administrator
// in the same transaction. A group must never exist without at least one
// admin, so a failing membership insert rolls the group back.
func (s *Store) CreateGroup(ctx context.Context, creatorID int64, name string, profPictureID *int64, privacyLevel int64, description *string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("db not initialized")
	}
	if privacyLevel < PrivacyLevelSecret || privacyLevel > PrivacyLevelPublic {
		return 0, fmt.Errorf("%w: privacy level", ErrInvalidValue)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var groupID int64
	groupQ := `INSERT INTO groups (name, prof_picture_id, privacy_level, description)
		VALUES (?, ?, ?, ?) RETURNING group_id;`
	if err := tx.QueryRowContext(ctx, s.rebind(groupQ),
		name, profPictureID, privacyLevel, description,
	).Scan(&groupID); err != nil {
		switch {
		case isForeignKeyViolation(err):
			return 0, fmt.Errorf("%w: profile picture", ErrNotFound)
		case isCheckViolation(err):
			return 0, fmt.Errorf("%w: privacy level", ErrInvalidValue)
		}
		return 0, err
	}

	memberQ := `INSERT INTO groups_members (group_id, user_id, administrator) VALUES (?, ?, ?);`
	if _, err := tx.ExecContext(ctx, s.rebind(memberQ), groupID, creatorID, MemberRoleAdministrator); err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("%w: creator", ErrNotFound)
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return groupID, nil
}

func (s *Store) GetGroup(ctx context.Context, groupID int64) (GroupRow, error) {
	if s == nil || s.db == nil {
		return GroupRow{}, fmt.Errorf("db not initialized")
	}

	q := `SELECT group_id, name, prof_picture_id, privacy_level, description
		FROM groups WHERE group_id = ?;`
	row := s.db.QueryRowContext(ctx, s.rebind(q), groupID)
	group, err := scanGroup(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return GroupRow{}, fmt.Errorf("%w: group", ErrNotFound)
		}
		return GroupRow{}, err
	}
	return group, nil
}

func (s *Store) SearchGroups(ctx context.Context, name string) ([]GroupRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("db not initialized")
	}

	q := `SELECT group_id, name, prof_picture_id, privacy_level, description
		FROM groups WHERE name LIKE ?;`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), "%"+name+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []GroupRow
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

// UpdateGroup applies a partial update touching only the supplied fields.
func (s *Store) UpdateGroup(ctx context.Context, groupID int64, upd GroupUpdate) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}
	if upd.PrivacyLevel.Set && (upd.PrivacyLevel.Value < PrivacyLevelSecret || upd.PrivacyLevel.Value > PrivacyLevelPublic) {
		return fmt.Errorf("%w: privacy level", ErrInvalidValue)
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
	if upd.Name.Set {
		addSet("name", upd.Name.Value)
	}
	if upd.ProfPictureID.Set {
		addSet("prof_picture_id", upd.ProfPictureID.Value)
	}
	if upd.PrivacyLevel.Set {
		addSet("privacy_level", upd.PrivacyLevel.Value)
	}
	if upd.Description.Set {
		addSet("description", upd.Description.Value)
	}
	if setClauses == "" {
		return nil
	}

	args = append(args, groupID)
	q := "UPDATE groups SET " + setClauses + " WHERE group_id = ?;"
	result, err := s.db.ExecContext(ctx, s.rebind(q), args...)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: profile picture", ErrNotFound)
		case isCheckViolation(err):
			return fmt.Errorf("%w: privacy level", ErrInvalidValue)
		}
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: group", ErrNotFound)
	}
	return nil
}

// DeleteGroup removes the group; memberships, join requests and status links
// cascade away. The statuses themselves survive on their creators' walls.
func (s *Store) DeleteGroup(ctx context.Context, groupID int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db not initialized")
	}

	q := `DELETE FROM groups WHERE group_id = ?;`
	result, err := s.db.ExecContext(ctx, s.rebind(q), groupID)
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("%w: group", ErrNotFound)
	}
	return nil
}

func scanGroup(r rowScanner) (GroupRow, error) {
	var group GroupRow
	var picture sql.NullInt64
	var description sql.NullString
	if err := r.Scan(
		&group.GroupID, &group.Name, &picture, &group.PrivacyLevel, &description,
	); err != nil {
		return GroupRow{}, err
	}
	if picture.Valid {
		group.ProfPictureID = &picture.Int64
	}
	if description.Valid {
		group.Description = &description.String
	}
	return group, nil
}
