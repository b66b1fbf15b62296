package main

import (
	"github.com/trezcool/shule/storage/database"
)

var runMigrationsFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(cli.db, cli.engine, args[0], args[1:]...)
}
