package app

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/forky/internal/auth"
	"github.com/hitoshi/forky/internal/config"
	"github.com/hitoshi/forky/internal/contacts"
	"github.com/hitoshi/forky/internal/courses"
	"github.com/hitoshi/forky/internal/handler"
	"github.com/hitoshi/forky/internal/metrics"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/payment"
	"github.com/hitoshi/forky/internal/purchase"
	"github.com/hitoshi/forky/internal/repository"
	"github.com/hitoshi/forky/internal/security"
	"github.com/hitoshi/forky/internal/shop"
)

// Server はHTTPハンドラーと、停止時に解放すべきリソースをまとめたもの。
type Server struct {
	Handler     http.Handler
	RateLimiter *middleware.RateLimiter
}

// Close はバックグラウンドのリソースを解放する。
func (s *Server) Close() {
	s.RateLimiter.Stop()
}

// tokenSecrets はテナントごとのトークン署名鍵を返す。
func tokenSecrets(cfg *config.Config) map[model.Tenant][]byte {
	return map[model.Tenant][]byte{
		model.TenantShop:     []byte(cfg.TokenSecretGismos),
		model.TenantContacts: []byte(cfg.TokenSecretCallme),
		model.TenantCourses:  []byte(cfg.TokenSecretEdlearn),
	}
}

// BuildServer は全依存関係をワイヤリングし、APIサーバーのハンドラーを構築する。
// regにはメトリクスの登録先を渡す。
func BuildServer(cfg *config.Config, db *sql.DB, reg *prometheus.Registry, logger *slog.Logger) *Server {
	mc := metrics.NewCollector(reg)

	// 1. リポジトリの初期化
	shopUsers := repository.NewPostgresShopUserRepo(db)
	productRepo := repository.NewPostgresProductRepo(db)
	contactsUsers := repository.NewPostgresContactsUserRepo(db)
	contactRepo := repository.NewPostgresContactRepo(db)
	courseUsers := repository.NewPostgresCourseUserRepo(db)
	courseRepo := repository.NewPostgresCourseRepo(db)
	videoRepo := repository.NewPostgresVideoRepo(db)
	highfiveRepo := repository.NewPostgresHighfiveRepo(db)
	paymentRepo := repository.NewPostgresPaymentRepo(db)

	// 2. 認証（テナントごとに署名鍵とアカウントストアを分ける）
	tokens := auth.NewTokenService(tokenSecrets(cfg))
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	stores := map[model.Tenant]repository.AccountRepository{
		model.TenantShop:     shopUsers,
		model.TenantContacts: contactsUsers,
		model.TenantCourses:  courseUsers,
	}
	accounts := make(map[model.Tenant]handler.AccountServiceInterface, len(stores))
	for tenant, store := range stores {
		accounts[tenant] = auth.NewService(tenant, store, hasher, tokens, mc, logger)
	}

	// 3. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()
	orders := payment.NewClient(&http.Client{Timeout: 10 * time.Second}, payment.Config{
		KeyID:     cfg.RazorpayKeyID,
		KeySecret: cfg.RazorpayKeySecret,
		BaseURL:   cfg.RazorpayBaseURL,
		Currency:  cfg.PaymentCurrency,
	}, logger)

	retry := purchase.DefaultRetryPolicy()
	retry.Attempts = cfg.PaymentCommitRetries

	// 4. ルーターの構築
	rl := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth))
	router := handler.NewRouter(&handler.RouterDeps{
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rl,
		TrustProxy:        cfg.TrustProxy,
		Logger:            logger,

		HealthChecker:  db,
		Metrics:        mc,
		MetricsHandler: metrics.SetupMetricsRoute(reg),

		Accounts: accounts,
		Shop:     shop.NewService(shopUsers, productRepo, sanitizer, cfg.AdminCode),
		Contacts: contacts.NewService(contactsUsers, contactRepo),
		Courses:  courses.NewService(courseUsers, courseRepo, videoRepo, highfiveRepo, orders, sanitizer, logger),
		Purchase: purchase.NewWorkflow(courseUsers, courseRepo, paymentRepo, retry, mc, logger),
	})

	return &Server{Handler: router, RateLimiter: rl}
}
