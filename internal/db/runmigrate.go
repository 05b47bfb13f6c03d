package db

import "log"

// RunMigrations is the -migrate-only entry point: bring the schema up to
// date and return without keeping a connection open for serving. The
// MIGRATIONS switch works the same as in ConnectAndMigrate.
func RunMigrations(rawDSN string) error {
	db, err := ConnectAndMigrate(rawDSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("closing migration connection: %v", cerr)
		}
	}
	return nil
}
