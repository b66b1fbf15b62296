package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	appfs "github.com/trezcool/shule/fs"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	"github.com/trezcool/shule/storage/database/sqlxrepos"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()
	std := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger = logsvc.NewRollbarLogger(std, conf)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)

	// set up services
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	errAndDie(err)
	mailSvc := emailsvc.NewConsoleService(conf, tmpls, std, logger)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	stdSvc := student.NewService(db, sqlxrepos.NewStudentRepository(db))

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// start CLI
	cli := newCommandLine(db, conf.Database.Engine, usrSvc, stdSvc, validate, translator)
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
