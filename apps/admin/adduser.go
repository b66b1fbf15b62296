package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// addUser creates a user, or updates the password and status of the user with the same email.
func (cli *commandLine) addUser(name, email, pwd string, active bool) error {
	ctx := context.Background()

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, user.ErrNotFound):
		nu := user.NewUser{Name: name, Email: email, Password: pwd, PasswordConfirm: pwd}
		if err = nu.Validate(cli.validate); err != nil {
			return cli.translateError(err)
		}
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return cli.translateError(err)
		}
		_, _ = fmt.Fprintf(cli.out, "user %q created (id: %d)\n", usr.Email, usr.ID)
	case err != nil:
		return err
	default:
		if usr, err = cli.usrSvc.SetPassword(ctx, usr, pwd); err != nil {
			return cli.translateError(err)
		}
		_, _ = fmt.Fprintf(cli.out, "user %q updated (id: %d)\n", usr.Email, usr.ID)
	}

	if usr.IsActive != active {
		if _, err = cli.usrSvc.SetActive(ctx, usr, active); err != nil {
			return err
		}
	}
	return nil
}

// translateError turns validation errors into a readable error listing the invalid fields.
func (cli *commandLine) translateError(err error) error {
	var fields map[string]string
	switch vErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		fields = core.TranslateErrors(vErr, cli.translator)
	case *core.ValidationError:
		fields = vErr.FieldMap()
	}
	if len(fields) == 0 {
		return err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, k+": "+fields[k])
	}
	return errors.New(strings.Join(msgs, "; "))
}
