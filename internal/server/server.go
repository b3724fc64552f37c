// Package server wires the storefront together: it opens the store and the
// optional Redis, Kafka and Stripe connections, builds the services and
// controllers, and runs the HTTP server, the gRPC health endpoint and the
// background scheduler until the process is signalled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/storefront/app/controllers"
	"github.com/shashiranjanraj/storefront/app/listeners"
	"github.com/shashiranjanraj/storefront/app/repositories"
	"github.com/shashiranjanraj/storefront/app/routes"
	"github.com/shashiranjanraj/storefront/app/services"
	"github.com/shashiranjanraj/storefront/config"
	"github.com/shashiranjanraj/storefront/internal/kernel"
	"github.com/shashiranjanraj/storefront/pkg/auth"
	"github.com/shashiranjanraj/storefront/pkg/cache"
	"github.com/shashiranjanraj/storefront/pkg/database"
	"github.com/shashiranjanraj/storefront/pkg/event"
	storegrpc "github.com/shashiranjanraj/storefront/pkg/grpc"
	"github.com/shashiranjanraj/storefront/pkg/kafka"
	"github.com/shashiranjanraj/storefront/pkg/logger"
	"github.com/shashiranjanraj/storefront/pkg/mail"
	"github.com/shashiranjanraj/storefront/pkg/middleware"
	"github.com/shashiranjanraj/storefront/pkg/migration"
	"github.com/shashiranjanraj/storefront/pkg/outbox"
	"github.com/shashiranjanraj/storefront/pkg/payment"
	"github.com/shashiranjanraj/storefront/pkg/router"
	"github.com/shashiranjanraj/storefront/pkg/schedule"
	"github.com/shashiranjanraj/storefront/pkg/storage"
	"github.com/shashiranjanraj/storefront/pkg/ws"
)

// Overrides replaces dependencies that would otherwise be built from
// config. Tests use it to inject the fake gateway and a temp disk.
type Overrides struct {
	Gateway   payment.Gateway
	Publisher outbox.Publisher
	Disk      storage.Disk
	Locker    cache.Locker
	Counter   cache.Counter
	Mailer    mail.Sender
}

// App holds every long-lived dependency.
type App struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Bus        *event.Bus
	Hub        *ws.Hub
	Issuer     *auth.Issuer
	Checkout   *services.CheckoutService
	Reconciler *services.Reconciler
	Relay      *outbox.Relay
	Router     *router.Router

	memCounter *cache.MemoryCounter
	closers    []func()
}

// OpenDB opens the configured database.
func OpenDB() (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.Open(database.Defaults(config.DatabaseDriver(), config.DatabaseDSN()))
}

// New builds the application on db.
func New(ctx context.Context, db *gorm.DB, o Overrides) (*App, error) {
	if config.IsProduction() && config.JWTSecret() == "change-me-in-production" {
		return nil, errors.New("server: JWT_SECRET must be set in production")
	}

	a := &App{
		DB:     db,
		Bus:    event.NewBus(),
		Issuer: auth.NewIssuer(config.JWTSecret(), config.JWTTTL()),
	}

	if o.Locker == nil || o.Counter == nil {
		a.connectRedis(ctx)
	}
	locker, counter := o.Locker, o.Counter
	if locker == nil {
		if a.Redis != nil {
			locker = cache.NewRedisLocker(a.Redis)
		} else {
			locker = cache.NewMemoryLocker()
		}
	}
	if counter == nil {
		if a.Redis != nil {
			counter = cache.NewRedisCounter(a.Redis)
		} else {
			counter = cache.NewMemoryCounter()
		}
	}

	gateway := o.Gateway
	if gateway == nil {
		g, err := newGateway()
		if err != nil {
			a.Close()
			return nil, err
		}
		gateway = g
	}

	pub := o.Publisher
	if pub == nil {
		pub = a.newPublisher()
	}
	a.Relay = outbox.NewRelay(db, pub, 100)

	disk := o.Disk
	if disk == nil {
		d, err := storage.Open(storage.FromEnv())
		if err != nil {
			a.Close()
			return nil, err
		}
		disk = d
	}

	a.Hub = ws.NewHub(originChecker(config.CORSOrigins()))
	a.Hub.Subscribe(a.Bus)
	a.closers = append(a.closers, a.Hub.Close)

	users := repositories.NewUserRepository(db)
	products := repositories.NewProductRepository(db)
	carts := repositories.NewCartRepository(db)

	mailer := o.Mailer
	if mailer == nil {
		mailer = mail.NewSender(mail.FromEnv())
	}
	receipts := listeners.NewReceiptMailer(users, repositories.NewOrderRepository(db), mailer)
	receipts.Subscribe(a.Bus)
	a.closers = append(a.closers, receipts.Close)

	a.Checkout = services.NewCheckoutService(db, gateway, locker, a.Bus, services.CheckoutConfig{
		Currency:     config.Currency(),
		Topic:        config.OrderTopic(),
		LockTTL:      30 * time.Second,
		StrictAmount: config.StrictAmount(),
	})
	a.Reconciler = services.NewReconciler(a.Checkout, services.ReconcileConfig{
		After:       config.ReconcileAfter(),
		ExpireAfter: config.OrderExpireAfter(),
	})

	c := routes.Controllers{
		Auth:     controllers.NewAuthController(services.NewAuthService(users, a.Issuer)),
		Product:  controllers.NewProductController(services.NewProductService(products)),
		Cart:     controllers.NewCartController(services.NewCartService(carts, products)),
		Checkout: controllers.NewCheckoutController(a.Checkout),
		Order:    controllers.NewOrderController(a.Checkout, a.Hub),
		Upload:   controllers.NewUploadController(disk),
		Admin:    controllers.NewAdminController(services.NewAdminService(users)),
	}

	opts := kernel.Options{
		Counter:     counter,
		RateLimit:   config.RateLimit(),
		CORSOrigins: config.CORSOrigins(),
		Health:      func(ctx context.Context) error { return database.Ping(ctx, db) },
	}
	if local, ok := disk.(*storage.Local); ok {
		opts.StaticDir = local.Root()
	}
	a.Router = kernel.NewHTTPKernel(opts, func(r *router.Router) {
		routes.RegisterAPI(r, c, middleware.Authenticate(a.Issuer))
	})
	if mc, ok := counter.(*cache.MemoryCounter); ok {
		a.memCounter = mc
	}
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) {
	addr := config.RedisAddr()
	if addr == "" {
		logger.Info("redis not configured; using in-process locks and rate limits")
		return
	}
	rdb, err := cache.Connect(ctx, addr, config.RedisPassword())
	if err != nil {
		logger.Warn("redis unavailable; using in-process locks and rate limits", "addr", addr, "error", err)
		return
	}
	a.Redis = rdb
	a.closers = append(a.closers, func() { _ = rdb.Close() })
}

func newGateway() (payment.Gateway, error) {
	switch driver := config.PaymentDriver(); driver {
	case "stripe":
		key := config.StripeSecretKey()
		if key == "" {
			return nil, errors.New("server: STRIPE_SECRET_KEY is required for the stripe driver")
		}
		return payment.Instrument(payment.NewStripe(key), driver), nil
	case "fake":
		if config.IsProduction() {
			return nil, errors.New("server: the fake payment driver is not allowed in production")
		}
		logger.Warn("using the fake payment gateway")
		return payment.Instrument(payment.NewFake(), driver), nil
	default:
		return nil, fmt.Errorf("server: unknown PAYMENT_DRIVER %q", driver)
	}
}

func (a *App) newPublisher() outbox.Publisher {
	p, err := kafka.NewClient(config.KafkaBrokers()).NewPublisher()
	if err != nil {
		logger.Info("kafka not configured; order events go to the log")
		return outbox.LogPublisher{}
	}
	a.closers = append(a.closers, func() { _ = p.Close() })
	return p
}

// originChecker mirrors the CORS origin list for websocket handshakes.
func originChecker(origins []string) func(*http.Request) bool {
	for _, o := range origins {
		if o == "*" {
			return nil
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Handler is the root HTTP handler.
func (a *App) Handler() http.Handler { return a.Router.Handler() }

// Scheduler returns the background jobs: the stale order reconciler and
// the outbox relay.
func (a *App) Scheduler() *schedule.Scheduler {
	s := schedule.New()
	s.Every("orders:reconcile", config.ReconcileEvery(), a.Reconciler.Run).WithoutOverlapping()
	s.Every("outbox:relay", config.OutboxEvery(), a.Relay.Run).WithoutOverlapping()
	if a.memCounter != nil {
		s.Every("rate:sweep", time.Minute, func(context.Context) error {
			a.memCounter.Sweep()
			return nil
		})
	}
	return s
}

// Close releases connections in reverse order of acquisition. The
// database handle belongs to the caller.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Start runs the storefront until SIGINT or SIGTERM.
func Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.Load(); err != nil {
		return err
	}
	flush, err := logger.Setup(config.LogMongoURI())
	if err != nil {
		logger.Warn("mongo log sink disabled", "error", err)
	}
	defer flush()

	db, err := OpenDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	ran, err := migration.New(db).Run()
	if err != nil {
		return fmt.Errorf("server: migrate: %w", err)
	}
	if len(ran) > 0 {
		logger.Info("migrations applied", "names", ran)
	}

	app, err := New(ctx, db, Overrides{})
	if err != nil {
		return err
	}
	defer app.Close()

	sched := app.Scheduler()
	sched.Start(ctx)
	defer sched.Stop()

	grpcSrv, err := storegrpc.Start(config.GRPCPort(), func(ctx context.Context) error {
		return database.Ping(ctx, db)
	})
	if err != nil {
		return err
	}
	defer storegrpc.Stop(grpcSrv, 10*time.Second)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("storefront listening", "addr", srv.Addr, "env", config.AppEnv())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
