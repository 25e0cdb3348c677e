package main

import (
	"context"
	"flag"
	"log"
	"quizcert/internal/app"
	"quizcert/internal/config"
	"quizcert/internal/repository"
	"quizcert/internal/service"
	"quizcert/pkg/database"
	"quizcert/pkg/logger"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置文件所在目录")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移和种子数据，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.MigrateOnly = *migrateOnly

	if cfg.MigrateOnly {
		logger.InitLogger(cfg)
		defer logger.Log.Sync()

		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		testRepo := repository.NewTestRepository(db)
		tests := service.NewTestService(testRepo)
		questions := service.NewQuestionService(repository.NewQuestionRepository(db), testRepo)
		if err := service.NewSeedService(tests, questions).SeedDefaults(context.Background()); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		log.Println("数据库迁移完成，退出程序")
		return
	}

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	application.Run()
}
