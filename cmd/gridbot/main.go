package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gridbot/pkg/api"
	"gridbot/pkg/config"
	"gridbot/pkg/db"
	"gridbot/pkg/logger"
	"gridbot/pkg/manager"
	"gridbot/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.toml", "配置文件路径")
	flag.Parse()

	// .env存在时加载（环境变量优先于配置文件中的凭证）
	if err := godotenv.Load(); err == nil {
		log.Println("✓ 已加载 .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ 加载配置失败: %v", err)
	}
	log.Printf("✓ 配置已加载: %s（%d个bot）", *configPath, len(cfg.Bots))

	dbManager, err := db.NewManager(cfg.DataDir)
	if err != nil {
		log.Fatalf("❌ 初始化数据库失败: %v", err)
	}
	defer dbManager.Close()

	auditStore, err := storage.NewAuditStorage(dbManager)
	if err != nil {
		log.Fatalf("❌ 初始化审计存储失败: %v", err)
	}
	cycleStore, err := storage.NewCycleStorage(dbManager)
	if err != nil {
		log.Fatalf("❌ 初始化周期快照存储失败: %v", err)
	}

	audit, err := logger.NewAuditLogger(cfg.DataDir)
	if err != nil {
		log.Fatalf("❌ 初始化审计日志失败: %v", err)
	}
	defer audit.Close()

	botManager := manager.NewBotManager()
	for _, botCfg := range cfg.Bots {
		if !botCfg.Enabled {
			log.Printf("⏭  Bot '%s' 未启用，跳过", botCfg.ID)
			continue
		}

		// 环境变量优先于配置文件中的凭证
		if key := os.Getenv("EXCHANGE_API_KEY"); key != "" {
			botCfg.APIKey = key
		}
		if secret := os.Getenv("EXCHANGE_API_SECRET"); secret != "" {
			botCfg.APISecret = secret
		}

		if err := botManager.AddBot(botCfg, cfg, audit, auditStore, cycleStore); err != nil {
			log.Fatalf("❌ 添加bot '%s' 失败: %v", botCfg.ID, err)
		}
	}

	server := api.NewServer(botManager, auditStore, cycleStore,
		cfg.APIServer.Port, cfg.APIServer.EnableRateLimit, cfg.APIServer.RateLimitRPS)
	server.Start()

	botManager.StartAll()

	// 等待SIGINT/SIGTERM：停止循环但不触碰交易所状态
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("⏰ 收到信号 %v，正在退出...", sig)

	botManager.StopAll()
	server.Stop()
	log.Println("✓ 已退出")
}
