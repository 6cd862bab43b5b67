package main

import (
	"context"
	"fmt"
	"time"

	"warehousepos/internal/analytics"
	"warehousepos/internal/caching"
	"warehousepos/internal/config"
	"warehousepos/internal/jobs"
	"warehousepos/internal/jobs/background"
	"warehousepos/internal/realtime"
	"warehousepos/internal/repositories"
	"warehousepos/internal/services"
	"warehousepos/internal/sms"
	"warehousepos/pkg/database"
	"warehousepos/pkg/logger"
	"warehousepos/pkg/metrics"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// jobLockTTL bounds how long a crashed replica can hold a job tick.
const jobLockTTL = 10 * time.Minute

// app holds the process-wide dependencies shared by serve and worker.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	pool  *pgxpool.Pool
	redis *redis.Client
	minio services.MinioService

	cache     caching.CacheService
	broker    *realtime.Broker
	smsRouter *sms.Router
	otp       *sms.OTPService

	tenantRepo repositories.TenantRepository
	storeRepo  repositories.StoreRepository
	stockRepo  repositories.StockRepository

	rbac      services.RBACService
	tenants   services.TenantService
	stores    services.StoreService
	catalog   services.CategoryService
	products  services.ProductService
	stock     services.StockService
	customers services.CustomerService
	zones     services.ZoneService
	quotes    services.QuoteService
	notifier  services.NotificationService
	orders    services.OrderService
	payments  services.PaymentService
	riders    services.RiderService
	delivery  services.DeliveryService
	portal    services.PortalService
	analytics *analytics.AnalyticsService
}

// newApp connects to Postgres, Redis and MinIO and builds every service.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	pool, err := database.NewPool(ctx, database.Options{
		URL:             cfg.DB.URL,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.pool = pool

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(ctx, pool, "up"); err != nil {
			return nil, multierr.Append(err, a.Close())
		}
		log.Info(ctx, "migrations applied")
	}

	a.redis, err = caching.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("redis: %w", err), a.Close())
	}

	a.minio, err = services.NewMinioService(services.MinioOptions{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
	})
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("storage: %w", err), a.Close())
	}
	if err := a.minio.EnsureBucketExists(ctx); err != nil {
		// images are optional for selling; keep serving without them
		log.Error(ctx, "ensure storage bucket", err)
	}

	a.cache = caching.NewRedisCacheService(a.redis)
	a.broker = realtime.NewBroker(a.redis, log)
	a.smsRouter = newSMSRouter(cfg.SMS, log)
	a.otp = sms.NewOTPService(a.smsRouter, a.cache, cfg.SMS.OTPLimit, cfg.SMS.OTPWindow, log)

	a.wire()
	return a, nil
}

func newSMSRouter(cfg config.SMSConfig, log *logger.Logger) *sms.Router {
	return sms.NewRouter(log).
		Handle("+233", sms.NewMNotifyClient(sms.ClientOptions{
			BaseURL:    cfg.MNotifyBaseURL,
			APIKey:     cfg.MNotifyAPIKey,
			SenderID:   cfg.MNotifySender,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
		})).
		Handle("+234", sms.NewTermiiClient(sms.ClientOptions{
			BaseURL:    cfg.TermiiBaseURL,
			APIKey:     cfg.TermiiAPIKey,
			SenderID:   cfg.TermiiSender,
			Timeout:    cfg.Timeout,
			RetryCount: cfg.RetryCount,
		}))
}

func (a *app) wire() {
	var (
		cfg = a.cfg
		log = a.log
	)

	a.tenantRepo = repositories.NewTenantRepo(a.pool)
	a.storeRepo = repositories.NewStoreRepo(a.pool)
	a.stockRepo = repositories.NewStockRepo(a.pool)
	categoryRepo := repositories.NewCategoryRepo(a.pool)
	productRepo := repositories.NewProductRepo(a.pool)
	productImageRepo := repositories.NewProductImageRepo(a.pool)
	customerRepo := repositories.NewCustomerRepo(a.pool)
	orderRepo := repositories.NewOrderRepo(a.pool)
	paymentRepo := repositories.NewPaymentRepo(a.pool)
	zoneRepo := repositories.NewZoneRepo(a.pool)
	riderRepo := repositories.NewRiderRepo(a.pool)
	deliveryRepo := repositories.NewDeliveryRepo(a.pool)
	analyticsRepo := repositories.NewAnalyticsRepo(a.pool)

	a.rbac = services.NewRBACService()
	a.tenants = services.NewTenantService(a.tenantRepo, a.cache, log)
	a.stores = services.NewStoreService(a.storeRepo, a.tenantRepo, a.cache, log)
	a.catalog = services.NewCategoryService(categoryRepo)
	a.products = services.NewProductService(productRepo, categoryRepo, productImageRepo, a.minio, a.cache, cfg.Storage.PresignTTL, log)
	a.stock = services.NewStockService(a.stockRepo, a.storeRepo, productRepo, log)
	a.customers = services.NewCustomerService(customerRepo, a.tenantRepo)
	a.zones = services.NewZoneService(zoneRepo, a.storeRepo)
	a.quotes = services.NewQuoteService(productRepo, a.stockRepo, a.zones)
	a.notifier = services.NewNotificationService(a.smsRouter, customerRepo, a.storeRepo, a.cache, log)
	a.orders = services.NewOrderService(
		orderRepo, a.storeRepo, customerRepo, deliveryRepo,
		a.tenants, a.customers, a.quotes, a.notifier, a.cache, a.broker, log,
	)
	a.payments = services.NewPaymentService(paymentRepo, orderRepo, a.broker, cfg.Payments.WebhookSecret, log)
	a.riders = services.NewRiderService(riderRepo, a.storeRepo, a.tenantRepo, caching.NewRiderLocationStore(a.redis), a.broker, log)
	a.delivery = services.NewDeliveryService(deliveryRepo, orderRepo, riderRepo, a.minio, a.notifier, a.broker, cfg.Storage.PresignTTL, log)
	a.portal = services.NewPortalService(a.stores, a.tenants, productRepo, a.stockRepo, a.quotes, a.orders)
	a.analytics = analytics.NewAnalyticsService(analyticsRepo, a.tenantRepo, a.stockRepo, a.cache, log)
}

// newScheduler registers the background jobs. Jobs with a non-positive interval stay off.
func (a *app) newScheduler(reg prometheus.Registerer) (*background.JobScheduler, error) {
	js, err := background.NewJobScheduler(
		background.NewRedisLocker(a.redis, jobLockTTL),
		metrics.NewJobMetrics(reg),
		a.log,
	)
	if err != nil {
		return nil, err
	}

	cfg := a.cfg.Jobs
	if err := multierr.Combine(
		js.Register(jobs.NewAnalyticsRefreshJob(a.analytics, a.log), cfg.AnalyticsInterval),
		js.Register(jobs.NewLowStockScanJob(a.tenantRepo, a.storeRepo, a.stockRepo, a.notifier, a.log), cfg.LowStockInterval),
		js.Register(jobs.NewOrderExpiryJob(a.orders, cfg.PendingOrderTTL, a.log), cfg.OrderExpiryInterval),
		js.Register(jobs.NewRiderPresenceJob(a.riders, cfg.RiderStaleAfter), cfg.RiderSweepInterval),
	); err != nil {
		return nil, multierr.Append(err, js.Stop())
	}
	return js, nil
}

// Close releases the connections opened by newApp.
func (a *app) Close() error {
	var err error
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return err
}
