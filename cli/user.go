package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	actx "go.hackfix.me/awesome/app/context"
	aerrors "go.hackfix.me/awesome/app/errors"
	"go.hackfix.me/awesome/crypto"
	"go.hackfix.me/awesome/db/models"
)

// The User command manages the registered users of the site.
type User struct {
	Add struct {
		Email    string `arg:"" help:"The email address of the user."`
		Name     string `arg:"" help:"The display name of the user."`
		Admin    bool   `help:"Grant access to the management pages."`
		Password string `help:"The user password. If not set, it's read from stdin."`
	} `kong:"cmd,help='Add a new user.'"`
	Rm struct {
		Email string `arg:"" help:"The email address of the user."`
	} `kong:"cmd,help='Remove a user.'"`
	Ls     struct{} `kong:"cmd,help='List users.'"`
	Passwd struct {
		Email    string `arg:"" help:"The email address of the user."`
		Password string `help:"The new password. If not set, it's read from stdin."`
	} `kong:"cmd,help='Change the password of a user.'"`
}

// Run the user command.
func (c *User) Run(kctx *kong.Context, appCtx *actx.Context) error {
	if err := checkInitialized(appCtx); err != nil {
		return err
	}

	dbCtx := appCtx.DB.NewContext()

	switch kctx.Command() {
	case "user add <email> <name>":
		email := models.NormalizeEmail(c.Add.Email)
		if !models.ValidEmail(email) {
			return aerrors.NewWith("invalid email", "email", c.Add.Email)
		}
		name := strings.TrimSpace(c.Add.Name)
		if name == "" {
			return errors.New("invalid name")
		}
		hash, err := readPasswordHash(c.Add.Password, appCtx.Stdin)
		if err != nil {
			return err
		}

		user := &models.User{Email: email, Name: name, PasswordHash: hash, Admin: c.Add.Admin}
		if err = user.Save(dbCtx, appCtx.DB, false); err != nil {
			return aerrors.NewWithCause(fmt.Sprintf("failed adding user '%s'", email), err)
		}
		appCtx.Logger.Info("added user", "email", email, "id", user.ID, "admin", user.Admin)
	case "user rm <email>":
		user := &models.User{Email: models.NormalizeEmail(c.Rm.Email)}
		if err := user.Delete(dbCtx, appCtx.DB); err != nil {
			return aerrors.NewWithCause(fmt.Sprintf("failed removing user '%s'", user.Email), err)
		}
		appCtx.Logger.Info("removed user", "email", user.Email)
	case "user ls":
		users, err := models.Users(dbCtx, appCtx.DB, nil)
		if err != nil {
			return aerrors.NewWithCause("failed listing users", err)
		}

		data := make([][]string, len(users))
		for i, user := range users {
			data[i] = []string{
				strconv.FormatUint(user.ID, 10),
				user.Email,
				user.Name,
				strconv.FormatBool(user.Admin),
				humanize.RelTime(user.CreatedAt, appCtx.TimeNow(), "ago", "from now"),
			}
		}

		if len(data) > 0 {
			header := []string{"ID", "Email", "Name", "Admin", "Created"}
			if err = renderTable(header, data, appCtx.Stdout); err != nil {
				return fmt.Errorf("failed rendering users table: %w", err)
			}
		}
	case "user passwd <email>":
		user := &models.User{Email: models.NormalizeEmail(c.Passwd.Email)}
		if err := user.Load(dbCtx, appCtx.DB); err != nil {
			return aerrors.NewWithCause(fmt.Sprintf("failed loading user '%s'", user.Email), err)
		}
		hash, err := readPasswordHash(c.Passwd.Password, appCtx.Stdin)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		if err = user.Save(dbCtx, appCtx.DB, true); err != nil {
			return aerrors.NewWithCause(fmt.Sprintf("failed updating user '%s'", user.Email), err)
		}
		appCtx.Logger.Info("changed user password", "email", user.Email)
	}

	return nil
}

// readPasswordHash validates and hashes the password. If password is empty,
// the first line read from r is used instead.
func readPasswordHash(password string, r io.Reader) ([]byte, error) {
	if password == "" && r != nil {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if err := models.ValidatePassword(password); err != nil {
		return nil, err //nolint:wrapcheck // The error is descriptive enough.
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed hashing password: %w", err)
	}

	return hash, nil
}

