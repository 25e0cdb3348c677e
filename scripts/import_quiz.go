// 从 YAML 文件导入一份测试（标题、及格分、题目）
//
// 导入前会校验全部题目，slug 冲突时自动追加 -2、-3 ...
//
// 用法: go run scripts/import_quiz.go -file path/to/test.yaml

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"quizcert/internal/config"
	"quizcert/internal/repository"
	"quizcert/internal/service"
	"quizcert/pkg/database"
	"quizcert/pkg/logger"
)

func main() {
	file := flag.String("file", "", "测试定义 YAML 文件")
	configDir := flag.String("config", "configs", "配置文件所在目录")
	flag.Parse()

	if *file == "" {
		log.Fatal("缺少 -file 参数")
	}

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("无法打开文件: %v", err)
	}
	defer f.Close()

	def, err := service.ParseTestDefinition(f)
	if err != nil {
		log.Fatalf("解析测试定义失败: %v", err)
	}

	testRepo := repository.NewTestRepository(db)
	seed := service.NewSeedService(
		service.NewTestService(testRepo),
		service.NewQuestionService(repository.NewQuestionRepository(db), testRepo),
	)

	test, err := seed.Import(context.Background(), def)
	if err != nil {
		log.Fatalf("导入失败: %v", err)
	}
	log.Printf("导入完成: %s (/tests/%s/take), 共 %d 题", test.Title, test.Slug, len(def.Questions))
}
