package vehicle

import (
	"testing"

	"github.com/automercado/automercado/internal/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB 内存 SQLite；限制为单连接，保证事务与查询落在同一个内存库上。
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&user.User{}, &Vehicle{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedSeller(t *testing.T, db *gorm.DB, email string, role user.Role, canPublish bool) *user.User {
	t.Helper()
	u := &user.User{
		Email:        email,
		PasswordHash: "x",
		PasswordSalt: "x",
		Role:         role,
		Active:       true,
		CanPublish:   canPublish,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed seller: %v", err)
	}
	return u
}

func seedVehicle(t *testing.T, db *gorm.DB, v Vehicle) *Vehicle {
	t.Helper()
	if v.Brand == "" {
		v.Brand = "Toyota"
	}
	if v.Model == "" {
		v.Model = "Corolla"
	}
	if v.Year == 0 {
		v.Year = 2020
	}
	if v.EngineType == "" {
		v.EngineType = EngineGasoline
	}
	if v.BodyType == "" {
		v.BodyType = BodySedan
	}
	if v.Price == 0 {
		v.Price = 15000
	}
	if v.City == "" {
		v.City = "Madrid"
	}
	if v.Province == "" {
		v.Province = "Madrid"
	}
	if v.Status == "" {
		v.Status = StatusAvailable
	}
	v.Active = true
	if err := db.Create(&v).Error; err != nil {
		t.Fatalf("seed vehicle: %v", err)
	}
	return &v
}
