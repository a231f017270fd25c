// Package testdb opens an in-memory sqlite database carrying the full schema,
// for repository and handler tests.
package testdb

import (
	"time"

	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	receiverDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/receiver"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every new connection to :memory: is a fresh, empty database
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&userDatamodel.User{},
		&userDatamodel.UserRole{},
		&userDatamodel.OTPCode{},
		&categoryDatamodel.Category{},
		&categoryDatamodel.Account{},
		&receiverDatamodel.Receiver{},
		&receiverDatamodel.ReceiverCategory{},
		&receiverDatamodel.ReceiverAccount{},
		&expenseDatamodel.Expense{},
		&expenseDatamodel.ExpenseCategory{},
		&expenseDatamodel.ExpenseAccount{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
