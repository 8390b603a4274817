package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"metrico/internal/config"
	"metrico/internal/hunter"
	"metrico/internal/model"
	"metrico/internal/pkg"
	"metrico/internal/repository/mysql"
	"metrico/internal/repository/redis"
	"metrico/internal/router"
	"metrico/internal/service"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	log, err := pkg.NewLogger(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := mysql.Config{
		Driver:                 cfg.Database.Driver,
		DSN:                    cfg.Database.DSN,
		OnCreateAccountTrigger: cfg.Database.OnCreateAccountTrigger,
		OnCreateMediaTrigger:   cfg.Database.OnCreateMediaTrigger,
		OutboxEnabled:          cfg.Kafka.Enabled,
	}
	db, err := mysql.Open(dbCfg)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	if err := mysql.AutoMigrate(db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}
	if err := mysql.RegisterCreateHooks(db, dbCfg, log); err != nil {
		log.Fatal("register create hooks", zap.Error(err))
	}

	var statsCache *redis.StatsCacheRepository
	if cfg.Redis.Enabled {
		if err := redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
			log.Fatal("connect redis", zap.Error(err))
		}
		defer redis.Close()
		statsCache = redis.NewStatsCacheRepository()
	}

	hunterSpecs := make(map[string]hunter.Spec, len(cfg.Hunters))
	for platform, hc := range cfg.Hunters {
		hunterSpecs[platform] = hunter.Spec{Cls: hc.Cls, Options: hc.Options}
	}
	hunters, err := hunter.NewSet(hunterSpecs)
	if err != nil {
		log.Fatal("build hunters", zap.Error(err))
	}

	accounts := mysql.NewAccountRepository(db, log)
	triggers := mysql.NewTriggerRepository(db, log)
	updates := service.NewUpdateService(db, hunters, accounts, log)

	runners := make(map[string]service.Runner, len(cfg.Triggers))
	for name, tc := range cfg.Triggers {
		runner, err := service.NewRunner(name, tc.Cls, tc.Options)
		if err != nil {
			log.Fatal("build trigger runner", zap.String("trigger", name), zap.Error(err))
		}
		runners[name] = runner
	}
	triggerSvc := service.NewTriggerService(db, triggers, updates, runners, log)

	sender := service.LogSender(log)
	if cfg.Kafka.Enabled {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		if err != nil {
			log.Fatal("build kafka producer", zap.Error(err))
		}
		defer producer.Close()
		sender = func(ctx context.Context, ob *model.EntityOutbox) error {
			return producer.SendEvent(ctx, ob.EntityID, []byte(ob.Payload))
		}
	}
	relayer := service.NewOutboxRelayer(&mysql.OutboxRepository{DB: db}, sender, log)
	go relayer.Run(ctx)

	r := router.InitRouter(router.Deps{
		DB:         db,
		Accounts:   accounts,
		Triggers:   triggers,
		Updates:    updates,
		TriggerSvc: triggerSvc,
		StatsCache: statsCache,
		Log:        log,
	})
	if err := r.Run(cfg.Server.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
