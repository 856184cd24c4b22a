package db

import (
	"embed"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	"github.com/rainbowsvgs/spectra/dbtypes"
	"github.com/rainbowsvgs/spectra/types"
	"github.com/rainbowsvgs/spectra/utils"
)

//go:embed schema/pgsql/*.sql
var EmbedPgsqlSchema embed.FS

//go:embed schema/sqlite/*.sql
var EmbedSqliteSchema embed.FS

var DbEngine dbtypes.DBEngineType
var WriterDb *sqlx.DB
var ReaderDb *sqlx.DB

var logger = logrus.StandardLogger().WithField("module", "db")

func checkDbConn(dbConn *sqlx.DB, dataBaseName string) {
	// The golang sql driver does not properly implement PingContext
	// therefore we use a timer to catch db connection timeouts
	dbConnectionTimeout := time.NewTimer(15 * time.Second)

	go func() {
		<-dbConnectionTimeout.C
		logger.Fatalf("timeout while connecting to %s", dataBaseName)
	}()

	err := dbConn.Ping()
	if err != nil {
		logger.Fatalf("unable to Ping %s: %s", dataBaseName, err)
	}

	dbConnectionTimeout.Stop()
}

func mustInitSqlite(config *types.SqliteDatabaseConfig) (*sqlx.DB, *sqlx.DB) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing sqlite connection to %v with %v/%v conn limit", config.File, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("sqlite", fmt.Sprintf("%s?cache=shared", config.File))
	if err != nil {
		utils.LogFatal(err, "error opening sqlite database", 0)
	}

	checkDbConn(dbConn, "database")
	dbConn.SetConnMaxIdleTime(0)
	dbConn.SetConnMaxLifetime(0)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	dbConn.MustExec("PRAGMA journal_mode = WAL")

	return dbConn, dbConn
}

func mustInitPgsql(config *types.PgsqlDatabaseConfig) (*sqlx.DB, *sqlx.DB) {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 50
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.MaxOpenConns < config.MaxIdleConns {
		config.MaxIdleConns = config.MaxOpenConns
	}

	logger.Infof("initializing pgsql connection to %v with %v/%v conn limit", config.Host, config.MaxIdleConns, config.MaxOpenConns)
	dbConn, err := sqlx.Open("pgx", fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", config.Username, config.Password, config.Host, config.Port, config.Name))
	if err != nil {
		utils.LogFatal(err, "error opening pgsql database", 0)
	}

	checkDbConn(dbConn, "database")
	dbConn.SetConnMaxIdleTime(time.Second * 30)
	dbConn.SetConnMaxLifetime(time.Second * 60)
	dbConn.SetMaxOpenConns(config.MaxOpenConns)
	dbConn.SetMaxIdleConns(config.MaxIdleConns)

	return dbConn, dbConn
}

func MustInitDB() {
	switch utils.Config.Database.Engine {
	case "sqlite":
		DbEngine = dbtypes.DBEngineSqlite
		WriterDb, ReaderDb = mustInitSqlite(utils.Config.Database.Sqlite)
	case "pgsql":
		DbEngine = dbtypes.DBEnginePgsql
		WriterDb, ReaderDb = mustInitPgsql(utils.Config.Database.Pgsql)
	default:
		logger.Fatalf("unknown database engine type: %s", utils.Config.Database.Engine)
	}
}

func MustCloseDB() {
	err := WriterDb.Close()
	if err != nil {
		logger.Errorf("Error closing writer db connection: %v", err)
	}
	if ReaderDb != WriterDb {
		err = ReaderDb.Close()
		if err != nil {
			logger.Errorf("Error closing reader db connection: %v", err)
		}
	}
}

func ApplyEmbeddedDbSchema(version int64) error {
	var engineDialect string
	var schemaDirectory string

	switch DbEngine {
	case dbtypes.DBEnginePgsql:
		goose.SetBaseFS(EmbedPgsqlSchema)
		engineDialect = "postgres"
		schemaDirectory = "schema/pgsql"
	case dbtypes.DBEngineSqlite:
		goose.SetBaseFS(EmbedSqliteSchema)
		engineDialect = "sqlite3"
		schemaDirectory = "schema/sqlite"
	default:
		logger.Fatalf("unknown database engine")
	}

	if err := goose.SetDialect(engineDialect); err != nil {
		return err
	}

	goose.SetLogger(logger)

	if version == -2 {
		if err := goose.Up(WriterDb.DB, schemaDirectory); err != nil {
			return err
		}
	} else if version == -1 {
		if err := goose.UpByOne(WriterDb.DB, schemaDirectory); err != nil {
			return err
		}
	} else {
		if err := goose.UpTo(WriterDb.DB, schemaDirectory, version); err != nil {
			return err
		}
	}

	return nil
}

func EngineQuery(queryMap map[dbtypes.DBEngineType]string) string {
	if queryMap[DbEngine] != "" {
		return queryMap[DbEngine]
	}

	return queryMap[dbtypes.DBEngineAny]
}

func RunDBTransaction(handler func(tx *sqlx.Tx) error) error {
	tx, err := WriterDb.Beginx()
	if err != nil {
		return fmt.Errorf("error starting db transaction: %w", err)
	}
	defer tx.Rollback()

	err = handler(tx)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing db transaction: %w", err)
	}

	return nil
}
