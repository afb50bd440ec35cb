package db

import (
	"roomy/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Models lists every persisted entity in migration-safe order (referenced
// tables first). Shared by the migrate command and the test harness.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Group{},
		&domain.GroupMember{},
		&domain.Bill{},
		&domain.BillItem{},
		&domain.Proposal{},
		&domain.Vote{},
		&domain.Transaction{},
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{}) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.Info("Migration completed.")
}
