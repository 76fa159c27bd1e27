package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed signals.sql
var signalsSQL string

//go:embed entities.sql
var entitiesSQL string

//go:embed connections.sql
var connectionsSQL string

//go:embed trends.sql
var trendsSQL string

// Function lists for verification
var SignalsFunctions = []string{
	"init_signals",
	"insert_signal",
	"select_signal",
	"select_signals",
	"select_signals_by_distance",
	"count_signals",
}

var EntitiesFunctions = []string{
	"init_entities",
	"insert_entity",
	"select_entity",
	"select_entity_by_name",
	"select_all_entities",
	"select_entities_by_similarity",
	"count_entities",
}

var ConnectionsFunctions = []string{
	"init_connections",
	"insert_connection",
	"select_connections_from_entity",
	"select_connections_to_entity",
	"select_all_connections",
	"count_connections",
}

var TrendsFunctions = []string{
	"init_trends",
	"insert_trend",
	"select_trend_by_name",
	"select_all_trends",
	"count_trends",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadSignalsSql loads signal-related SQL functions
func LoadSignalsSql(db *sql.DB, force bool) error {
	return loadSql(db, "signals", signalsSQL, SignalsFunctions, force)
}

// LoadEntitiesSql loads entity-related SQL functions
func LoadEntitiesSql(db *sql.DB, force bool) error {
	return loadSql(db, "entities", entitiesSQL, EntitiesFunctions, force)
}

// LoadConnectionsSql loads connection-related SQL functions
func LoadConnectionsSql(db *sql.DB, force bool) error {
	return loadSql(db, "connections", connectionsSQL, ConnectionsFunctions, force)
}

// LoadTrendsSql loads trend-related SQL functions
func LoadTrendsSql(db *sql.DB, force bool) error {
	return loadSql(db, "trends", trendsSQL, TrendsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadSignalsSql(db, force); err != nil {
		return err
	}

	if err := LoadEntitiesSql(db, force); err != nil {
		return err
	}

	if err := LoadConnectionsSql(db, force); err != nil {
		return err
	}

	if err := LoadTrendsSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadSql(db *sql.DB, name string, script string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
