package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/automercado/automercado/internal/common/config"
	"github.com/automercado/automercado/internal/common/db"
	"github.com/automercado/automercado/internal/common/logger"
	"github.com/automercado/automercado/internal/user"
	"github.com/automercado/automercado/internal/vehicle"
)

var (
	configPath = flag.String("config", "configs/marketplace-service.json", "配置文件路径")
)

// seed-demo 向数据库写入一批演示数据：一个演示卖家 + 几辆车，
// 然后跑一次搜索和统计，方便本地联调。
func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	gdb, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := gdb.AutoMigrate(&user.User{}, &vehicle.Vehicle{}); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	ctx := context.Background()
	users := user.NewService(gdb, cfg.Auth, log)
	vehicles := vehicle.NewService(gdb, log)

	seller, err := users.Register(ctx, user.RegisterInput{
		Email:     "demo@automercado.local",
		Password:  "demo-pass",
		FirstName: "Demo",
		LastName:  "Seller",
		City:      "Madrid",
		Province:  "Madrid",
	})
	if err != nil {
		// 重复执行时卖家已存在，直接复用
		existing, _, authErr := users.Authenticate(ctx, "demo@automercado.local", "demo-pass")
		if authErr != nil {
			log.Fatalf("failed to seed demo seller: %v", err)
		}
		seller = existing
		log.Infof("demo seller already exists, reusing id=%d", seller.ID)
	}

	demo := []struct {
		brand string
		model string
		year  int
		price float64
	}{
		{"Toyota", "Corolla", 2021, 18500},
		{"Toyota", "RAV4", 2022, 32000},
		{"Honda", "Civic", 2020, 17800},
		{"Seat", "Leon", 2019, 14500},
		{"BMW", "Serie 3", 2021, 35500},
	}
	for _, d := range demo {
		v, err := vehicle.QuickCreate(ctx, vehicles, d.brand, d.model, d.year, d.price, seller.ID)
		if err != nil {
			log.Warnf("seed %s %s: %v", d.brand, d.model, err)
			continue
		}
		log.Infof("seeded vehicle id=%d %s %s", v.ID, v.Brand, v.Model)
	}

	found, err := vehicle.SimpleSearch(ctx, vehicles, "Toyota", 40000)
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	log.Infof("search: %d Toyota under 40000", len(found))

	stats, err := vehicles.Stats(ctx)
	if err != nil {
		log.Fatalf("stats failed: %v", err)
	}
	log.Infof("stats: total=%d available=%d", stats.Total, stats.ByStatus[vehicle.StatusAvailable])
	for _, b := range stats.TopBrands {
		log.Infof("top brand: %s (%d)", b.Brand, b.Count)
	}
}
