package db

import (
	"errors"
	"fmt"
	"os"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"motobms/internal/config"
	"motobms/internal/models"
)

// ConnectAndMigrate opens the database and brings the schema up to date.
// MIGRATIONS=1 selects versioned SQL migrations via golang-migrate; otherwise
// AutoMigrate keeps local development friction-free.
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, errors.New("database DSN is empty, check the environment configuration")
	}

	logLevel := logger.Silent
	if config.Bool("DB_DEBUG", false) {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	// The database container may still be starting; retry before giving up.
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), gcfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	fmt.Println("[DB] Using DSN:", maskDSN(dsn))

	if config.Bool("MIGRATIONS", false) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrateAll(db); err != nil {
			return nil, err
		}
	}

	// sanity check: core tables must exist before the server starts serving
	for _, table := range []string{"users", "shops", "customers", "orders"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	if config.Bool("DB_SEED", false) {
		Seed(db)
	}
	return db, nil
}

// AutoMigrateAll migrates every model; test setups reuse it against sqlite.
func AutoMigrateAll(db *gorm.DB) error {
	modelsToMigrate := []interface{}{
		&models.Shop{}, &models.CustomerClass{}, &models.Gender{}, &models.Region{},
		&models.Manufacturer{}, &models.VehicleCategory{}, &models.Color{},
		&models.User{}, &models.Customer{}, &models.CustomerMemo{},
		&models.EstimateParty{}, &models.Estimate{}, &models.EstimateItem{},
		&models.Order{}, &models.OrderItem{},
		&models.Delivery{}, &models.DeliveryItem{},
		&models.Payment{}, &models.Schedule{}, &models.AuditLog{},
		&models.Category{}, &models.Product{}, &models.BusinessCommunication{},
	}
	for _, m := range modelsToMigrate {
		if migErr := db.AutoMigrate(m); migErr != nil {
			return fmt.Errorf("automigrate %T: %w", m, migErr)
		}
	}
	return nil
}

// Seed inserts the baseline masters and a default admin when missing.
func Seed(db *gorm.DB) {
	baseClasses := []models.CustomerClass{
		{Code: "GEN", Name: "一般"},
		{Code: "WHL", Name: "業販", IsWholesale: true},
	}
	for _, cc := range baseClasses {
		var existing models.CustomerClass
		if err := db.Where("code = ?", cc.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&cc)
		}
	}
	baseGenders := []models.Gender{
		{Code: "M", Name: "男性"},
		{Code: "F", Name: "女性"},
		{Code: "O", Name: "その他"},
	}
	for _, g := range baseGenders {
		var existing models.Gender
		if err := db.Where("code = ?", g.Code).First(&existing).Error; err == gorm.ErrRecordNotFound {
			db.Create(&g)
		}
	}
	var maint models.Category
	if err := db.Where("name = ? AND parent_id IS NULL", "整備").First(&maint).Error; err == gorm.ErrRecordNotFound {
		maint = models.Category{Name: "整備", SortOrder: 1}
		db.Create(&maint)
		db.Create(&models.Category{Name: "定期点検", ParentID: &maint.ID, SortOrder: 1})
		db.Create(&models.Product{CategoryID: &maint.ID, Name: "オイル交換", UnitPrice: 3300, TaxType: "taxable", IsActive: true})
		db.Create(&models.Product{CategoryID: &maint.ID, Name: "自賠責保険", UnitPrice: 7010, TaxType: "non_taxable", IsActive: true})
	}
	var shop models.Shop
	if err := db.Where("code = ?", "HQ").First(&shop).Error; err == gorm.ErrRecordNotFound {
		shop = models.Shop{Code: "HQ", Name: "本店"}
		db.Create(&shop)
	}
	var admin models.User
	if err := db.Where("login_id = ?", "admin").First(&admin).Error; err == gorm.ErrRecordNotFound {
		pw := os.Getenv("ADMIN_PASSWORD")
		if pw == "" {
			pw = "admin"
		}
		hash, herr := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
		if herr != nil {
			return
		}
		db.Create(&models.User{LoginID: "admin", Password: string(hash), DisplayName: "管理者", Role: "admin", ShopID: &shop.ID, IsActive: true})
	}
}

// runSQLMigrations applies the versioned migrations in ./migrations.
// golang-migrate only takes the URL DSN form, so key=value input is converted.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", urlDSN(dsn))
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
