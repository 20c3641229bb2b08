package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/simbot/internal/controlplane"
	"github.com/betbot/simbot/internal/dashboard"
	"github.com/betbot/simbot/internal/exchange"
	"github.com/betbot/simbot/internal/exchange/ekiden"
	"github.com/betbot/simbot/internal/execution"
	"github.com/betbot/simbot/internal/metrics"
	"github.com/betbot/simbot/internal/services"
	"github.com/betbot/simbot/internal/strategies/activitysim"
	"github.com/betbot/simbot/pkg/bbgo"
	"github.com/betbot/simbot/pkg/config"
	"github.com/betbot/simbot/pkg/logger"
	"github.com/betbot/simbot/pkg/shutdown"
)

func main() {
	configPath := flag.String("config", "yml/config.yaml", "配置文件路径")
	withDashboard := flag.Bool("dashboard", false, "启用终端状态面板")
	dryRun := flag.Bool("dry-run", false, "强制纸交易模式（覆盖配置文件）")
	flag.Parse()

	// .env 不存在时静默跳过
	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.DryRun = true
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector := buildConnector(ctx, cfg)
	logrus.Infof("连接器: %s, dry_run=%v", connector.Name(), cfg.DryRun)

	mds := services.NewMarketDataService(connector)
	executor := execution.NewEngine(connector, mds)
	// 成交对账：订单离开挂单簿就释放执行器，不用等过期阈值
	executor.StartReconciler(ctx, time.Second)

	// 策略在 init() 里注册，这里从注册表取出并注入配置
	reg, err := bbgo.GetRegisteredStrategy(activitysim.ID)
	if err != nil {
		logrus.Fatalf("策略未注册: %v", err)
	}
	strategy, ok := reg.(*activitysim.Strategy)
	if !ok {
		logrus.Fatalf("策略类型不匹配: %T", reg)
	}
	strategy.Config = cfg.ActivitySim
	// 先注入依赖再启动控制面 / 面板，避免状态读取撞上未就绪的策略
	strategy.Bind(mds, executor)

	sm := shutdown.NewManager()
	session := &bbgo.Session{
		Instrument: cfg.ActivitySim.Instrument(),
		Trading:    mds,
	}
	trader := bbgo.NewTrader(session, executor, sm)
	trader.AddStrategy(strategy)
	if err := trader.Initialize(ctx); err != nil {
		logrus.Fatalf("策略初始化失败: %v", err)
	}

	if cfg.MetricsListen != "" {
		if err := metrics.StartAsync(ctx, cfg.MetricsListen); err != nil {
			logrus.Warnf("metrics 服务启动失败: %v", err)
		} else {
			logrus.Infof("metrics: http://%s/debug/vars", cfg.MetricsListen)
		}
	}
	if cfg.ControlListen != "" {
		if err := controlplane.StartAsync(ctx, cfg.ControlListen, strategy, strategy); err != nil {
			logrus.Warnf("控制面启动失败: %v", err)
		}
	}

	traderDone := make(chan error, 1)
	go func() { traderDone <- trader.Run(ctx) }()

	if *withDashboard {
		if err := dashboard.Run(ctx, strategy); err != nil {
			logrus.Warnf("面板退出: %v", err)
		}
		stop() // 面板退出即整体退出
	}

	select {
	case <-ctx.Done():
	case err := <-traderDone:
		if err != nil {
			logrus.Errorf("trader 退出: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sm.Shutdown(shutdownCtx)
	logrus.Info("bye")
}

func buildConnector(ctx context.Context, cfg *config.Config) exchange.Connector {
	client := ekiden.New(ekiden.Config{
		BaseURL: cfg.Exchange.BaseURL,
		WSURL:   cfg.Exchange.WSURL,
		APIKey:  cfg.Exchange.APIKey,
		Secret:  cfg.Exchange.Secret,
	})
	if cfg.Exchange.WSURL != "" {
		stream := ekiden.NewMarketStream(cfg.Exchange.WSURL, cfg.ActivitySim.TradingPair)
		stream.Start(ctx)
		client.AttachStream(stream)
	}
	if cfg.DryRun || cfg.Exchange.Name == "paper" {
		return services.NewDryRunConnector(client)
	}
	return client
}
