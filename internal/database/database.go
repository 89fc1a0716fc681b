package database

import (
	"log"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"planner/internal/domain"
)

func Connect(dsn string) (*gorm.DB, error) {
	return Open(dsn, &gorm.Config{})
}

// ConnectQuiet is Connect with SQL logging off; used by tests and one-shot
// commands.
func ConnectQuiet(dsn string) (*gorm.DB, error) {
	return Open(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
}

func Open(dsn string, cfg *gorm.Config) (*gorm.DB, error) {
	if IsPostgres(dsn) {
		log.Println("Connecting to PostgreSQL...")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	log.Println("Using SQLite for local development:", dsn)

	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection turns concurrent
	// transactions into a queue instead of SQLITE_BUSY errors.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Owner{},
		&domain.SchedulingConfiguration{},
		&domain.WorkingPreferences{},
		&domain.ScheduleItem{},
		&domain.Booking{},
		&domain.ActionToken{},
	)
}
