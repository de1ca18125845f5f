package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.hackfix.me/awesome/db/types"
)

// User is a registered user of the site. Admin users have access to the
// management pages.
type User struct {
	ID           uint64    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash []byte    `json:"-"`
	Admin        bool      `json:"admin"`
}

// Save stores the user data in the database. If update is true, the existing
// user identified by ID or Email is updated.
func (u *User) Save(ctx context.Context, d types.Querier, update bool) error {
	timeNow := d.TimeNow().UTC()

	if !update {
		insertStmt := `INSERT INTO users
		(id, created_at, updated_at, email, name, password_hash, admin)
		VALUES (NULL, ?, ?, ?, ?, ?, ?)`
		res, err := d.ExecContext(ctx, insertStmt,
			timeNow, timeNow, u.Email, u.Name, u.PasswordHash, u.Admin)
		if err != nil {
			return types.Err("user", fmt.Sprintf("email '%s'", u.Email), err)
		}

		u.ID, err = lastInsertID(res)
		if err != nil {
			return err
		}
		u.CreatedAt = timeNow
		u.UpdatedAt = timeNow

		return nil
	}

	filter, filterStr, err := u.filter("")
	if err != nil {
		return err
	}

	args := append([]any{timeNow, u.Name, u.PasswordHash, u.Admin}, filter.Args...)
	updateStmt := fmt.Sprintf(`UPDATE users
		SET updated_at = ?, name = ?, password_hash = ?, admin = ?
		WHERE %s`, filter.Where)
	res, err := d.ExecContext(ctx, updateStmt, args...)
	if err != nil {
		return types.Err("user", filterStr, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	}
	if n == 0 {
		return types.NoResultError{ModelName: "user", ID: filterStr}
	}
	u.UpdatedAt = timeNow

	return nil
}

// Load the user data from the database. Either the user ID or Email must be
// set for the lookup.
func (u *User) Load(ctx context.Context, d types.Querier) error {
	filter, filterStr, err := u.filter("u.")
	if err != nil {
		return err
	}

	users, err := Users(ctx, d, filter)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		return types.NoResultError{ModelName: "user", ID: filterStr}
	}
	*u = *users[0]

	return nil
}

// Delete removes the user data from the database. Either the user ID or Email
// must be set for the lookup. It returns an error if the user doesn't exist.
func (u *User) Delete(ctx context.Context, d types.Querier) error {
	filter, filterStr, err := u.filter("")
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf(`DELETE FROM users WHERE %s`, filter.Where)
	res, err := d.ExecContext(ctx, stmt, filter.Args...)
	if err != nil {
		return types.Err("user", filterStr, err)
	}

	var n int64
	if n, err = res.RowsAffected(); err != nil {
		return fmt.Errorf("failed getting affected rows: %w", err)
	} else if n == 0 {
		return types.NoResultError{ModelName: "user", ID: filterStr}
	}

	return nil
}

func (u *User) filter(prefix string) (*types.Filter, string, error) {
	switch {
	case u.ID != 0:
		return types.NewFilter(prefix+"id = ?", u.ID), fmt.Sprintf("ID %d", u.ID), nil
	case u.Email != "":
		return types.NewFilter(prefix+"email = ?", u.Email), fmt.Sprintf("email '%s'", u.Email), nil
	default:
		return nil, "", types.InvalidInputError{Msg: "either user ID or Email must be set"}
	}
}

// Users returns one or more users from the database. An optional filter can be
// passed to limit the results.
func Users(ctx context.Context, d types.Querier, filter *types.Filter) (users []*User, rerr error) {
	query := `SELECT u.id, u.created_at, u.updated_at, u.email, u.name, u.password_hash, u.admin
		FROM users u
		WHERE %s
		ORDER BY u.email ASC`

	where := "1=1"
	args := []any{}
	if filter != nil {
		where = filter.Where
		args = filter.Args
	}

	rows, err := d.QueryContext(ctx, fmt.Sprintf(query, where), args...)
	if err != nil {
		return nil, types.LoadError{ModelName: "users", Err: err}
	}
	defer func() {
		if err = rows.Close(); err != nil {
			rerr = errors.Join(rerr, fmt.Errorf("failed closing users rows: %w", err))
		}
	}()

	users = make([]*User, 0)
	for rows.Next() {
		var u User
		err = rows.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Email, &u.Name, &u.PasswordHash, &u.Admin)
		if err != nil {
			return nil, types.ScanError{ModelName: "user", Err: err}
		}
		users = append(users, &u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed iterating over users rows: %w", err)
	}

	return users, nil
}

func lastInsertID(result sql.Result) (uint64, error) {
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed getting last insert ID: %w", err)
	}
	if id < 0 {
		return 0, fmt.Errorf("invalid negative ID %d", id)
	}

	return uint64(id), nil
}
