package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"stockforge/internal/api"
	"stockforge/internal/bot"
	"stockforge/internal/config"
	"stockforge/internal/engine"
	"stockforge/internal/repository"
	"stockforge/internal/service"
	"stockforge/internal/stream"
	"stockforge/internal/websocket"
	"stockforge/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера
	logger := utils.InitGlobalLogger(utils.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	defer logger.Sync()
	log := logger.Sugar()

	log.Infow("запуск биржевого ядра",
		"addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"db", cfg.Database.DSNWithoutPassword(),
	)

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalw("не удалось подключиться к базе данных", "error", err)
	}
	defer db.Close()

	log.Info("подключение к базе данных установлено")

	// Инициализация репозиториев
	orderRepo := repository.NewOrderRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	// WebSocket hub и публикация рыночных событий
	hub := websocket.NewHub()
	go hub.Run()

	var producer *stream.Producer
	if cfg.Kafka.Enabled {
		producer = stream.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Infow("включена публикация в kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	notifier := stream.NewNotifier(hub, producer, log)

	// Матчинговое ядро: расчеты по сделкам идут через координатора
	// внутри критической секции символа
	coordinator := engine.NewCoordinator(tradeRepo, cfg.Engine.FeeRate, log)
	matching := engine.New(coordinator, notifier, cfg.Engine.DepthLevels, log)

	// Восстановление стаканов из БД строго до приема трафика и бота
	hydrationCtx, cancelHydration := context.WithTimeout(context.Background(), 60*time.Second)
	result, err := engine.NewHydrator(orderRepo, matching, log).Hydrate(hydrationCtx)
	cancelHydration()
	if err != nil {
		log.Fatalw("не удалось восстановить стаканы", "error", err)
	}
	log.Infow("стаканы восстановлены",
		"loaded", result.OrdersLoaded,
		"replayed", result.OrdersReplayed,
		"trades", result.TradesProduced,
	)

	// Источник референсных цен и сервисы
	feed := bot.NewPriceFeed(nil)
	orderService := service.NewOrderService(
		orderRepo,
		accountRepo,
		matching,
		feed,
		cfg.Engine.FeeRate,
		cfg.Engine.ProtectiveBuffer,
		log,
	)
	portfolioService := service.NewPortfolioService(accountRepo, tradeRepo)

	// Бот-провайдер ликвидности
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var marketMaker *bot.MarketMaker
	if cfg.MarketMaker.Enabled {
		marketMaker = bot.NewMarketMaker(cfg.MarketMaker, orderRepo, matching, feed, log)
		marketMaker.Start(ctx)
		log.Infow("маркет-мейкер запущен",
			"symbols", cfg.MarketMaker.Symbols,
			"interval", cfg.MarketMaker.Interval,
		)
	}

	// Настройка HTTP роутера
	router := api.SetupRoutes(&api.Dependencies{
		OrderService:     orderService,
		PortfolioService: portfolioService,
		Depth:            matching,
		Symbols:          matching,
		OpenOrders:       orderRepo,
		Hub:              hub,
		DepthLevels:      cfg.Engine.DepthLevels,
		OrderRateLimit:   cfg.Engine.OrderRateLimit,
		AdminHash:        cfg.Admin.PasswordHash,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		log.Infow("HTTP сервер слушает", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("сервер завершился с ошибкой", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("останавливаем сервер...")

	// Порядок остановки: сначала перестаем генерировать заявки,
	// затем гасим HTTP, последними закрываем каналы публикации
	if marketMaker != nil {
		marketMaker.Stop()
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("сервер остановлен принудительно", "error", err)
	}

	hub.Stop()
	if err := notifier.Close(); err != nil {
		log.Errorw("ошибка закрытия публикации событий", "error", err)
	}

	log.Info("сервер остановлен")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
