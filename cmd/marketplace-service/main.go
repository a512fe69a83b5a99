package main

import (
	"flag"
	"fmt"

	"github.com/automercado/automercado/internal/common/config"
	"github.com/automercado/automercado/internal/common/db"
	"github.com/automercado/automercado/internal/common/logger"
	"github.com/automercado/automercado/internal/common/server"
	"github.com/automercado/automercado/internal/common/tracing"
	"github.com/automercado/automercado/internal/user"
	"github.com/automercado/automercado/internal/vehicle"
	"google.golang.org/grpc"
)

var (
	configPath = flag.String("config", "configs/marketplace-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化数据库并迁移表结构
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

	// 启动统一的 gRPC 服务模板
	if err := server.RunGRPCServer(cfg, log, func(s *grpc.Server) error {
		// TODO: 在这里注册 marketplace 的业务 gRPC 服务，例如：
		// pb.RegisterVehicleServiceServer(s, vehicle.NewServer(vehicle.NewService(gdb, log)))
		// pb.RegisterUserServiceServer(s, user.NewServer(user.NewService(gdb, cfg.Auth, log)))
		return nil
	}); err != nil {
		log.Fatalf("marketplace-service exited with error: %v", err)
	}
}
