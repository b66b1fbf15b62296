package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/services/spreadsheet"
)

func (cli *commandLine) importStudents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening file")
	}
	defer func() { _ = f.Close() }()

	rows, err := spreadsheet.ReadStudents(f)
	if err != nil {
		return cli.translateError(err)
	}
	students, err := cli.stdSvc.Import(context.Background(), cli.validate, cli.translator, rows)
	if err != nil {
		return cli.translateError(err)
	}
	_, _ = fmt.Fprintf(cli.out, "%d students imported\n", len(students))
	return nil
}

func (cli *commandLine) exportStudents(path string) (err error) {
	students, err := cli.stdSvc.Query(context.Background(), nil, nil)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating file")
	}
	defer func() {
		if cErr := f.Close(); err == nil {
			err = cErr
		}
	}()

	if err = spreadsheet.WriteStudents(f, students); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%d students exported to %s\n", len(students), path)
	return nil
}
