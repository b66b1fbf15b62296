package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sqlx.DB
	engine     string
	usrSvc     *user.Service
	stdSvc     *student.Service
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-inactive] - create a user (or update an existing one)")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -email EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...] - run DB migrations (up, up-by-one, up-to, down, down-to, redo, reset, status, version)")
	_, _ = fmt.Fprintln(cli.out, "  importstudents -file PATH - create the students listed in an xlsx file")
	_, _ = fmt.Fprintln(cli.out, "  exportstudents -file PATH - write all students to an xlsx file")
}

// promptPassword reads a password from stdin without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserInactive := addUserCmd.Bool("inactive", false, "Create the user deactivated.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The user's email. The password will be prompted next.")

	importCmd := flag.NewFlagSet("importstudents", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "Path to the xlsx file. Columns: Name, Grade.")

	exportCmd := flag.NewFlagSet("exportstudents", flag.ContinueOnError)
	exportFile := exportCmd.String("file", "", "Path of the xlsx file to write.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, importCmd, exportCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserName == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, !*addUserInactive)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "importstudents":
		if err := importCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(*importFile)

	case "exportstudents":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportFile == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportStudents(*exportFile)

	default:
		cli.printUsage()
		return errHelp
	}
}

func newCommandLine(
	db *sqlx.DB,
	engine string,
	usrSvc *user.Service,
	stdSvc *student.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *commandLine {
	return &commandLine{
		db:         db,
		engine:     engine,
		usrSvc:     usrSvc,
		stdSvc:     stdSvc,
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
}
