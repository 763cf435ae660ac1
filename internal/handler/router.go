package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/forky/internal/metrics"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
)

// HealthChecker はDB接続の死活確認に必要なインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TrustProxy        bool
	Logger            *slog.Logger

	// 運用
	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler

	// テナントごとの登録・ログイン
	Accounts map[model.Tenant]AccountServiceInterface

	// ドメインサービス
	Shop     ShopServiceInterface
	Contacts ContactsServiceInterface
	Courses  CoursesServiceInterface
	Purchase PurchaseWorkflowInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (RealIP) → RateLimit(General)
//
// 登録・ログインには専用のレート制限を追加し、保護ルートにはテナントごとのトークンミドルウェアを適用する。
// あるテナントのトークンは他テナントのルートでは常に拒否される。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))
	if deps.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(deps.RateLimiter.GeneralMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusNotFound, "route not found", false, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusMethodNotAllowed, "method not allowed", false, nil)
	})

	// --- 運用ルート ---
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, "Master Forky API Running", true, nil)
	})
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authLimit := deps.RateLimiter.AuthMiddleware()
	tokenFor := func(tenant model.Tenant) func(http.Handler) http.Handler {
		return middleware.NewTokenMiddleware(deps.TokenVerifier, tenant, deps.Metrics)
	}

	// --- 登録・ログイン・自動ログイン ---
	profiles := map[model.Tenant]ProfileFunc{
		model.TenantShop:     ShopProfile(deps.Shop),
		model.TenantContacts: ContactsProfile(deps.Contacts),
		model.TenantCourses:  CoursesProfile(deps.Courses),
	}
	for _, tenant := range model.Tenants() {
		svc, ok := deps.Accounts[tenant]
		if !ok {
			continue
		}
		h := NewAccountHandler(svc, profiles[tenant])
		suffix := tenant.RouteSuffix()

		r.With(authLimit).Post("/register-"+suffix, h.Register)
		r.With(authLimit).Post("/login-"+suffix, h.Login)
		r.With(tokenFor(tenant)).Post("/autologin-"+suffix, h.Autologin)
	}

	// --- ストアフロント（gismos） ---
	shopHandler := NewShopHandler(deps.Shop)
	r.Post("/add-product", shopHandler.AddProduct)
	r.Get("/get-products", shopHandler.ListProducts)
	r.Group(func(r chi.Router) {
		r.Use(tokenFor(model.TenantShop))
		r.Put("/update-cart", shopHandler.UpdateCart)
		r.Put("/confirm-order", shopHandler.ConfirmOrder)
	})

	// --- 連絡帳（callme） ---
	contactsHandler := NewContactsHandler(deps.Contacts)
	r.Get("/get-contacts", MissingParam("user ID parameter missing in URL"))
	r.Get("/get-contact", MissingParam("contact ID parameter missing in URL"))
	r.Post("/add-contact", MissingParam("user ID parameter not specified"))
	r.Put("/update-contact", MissingParam("contact ID parameter missing from URL"))
	r.Group(func(r chi.Router) {
		r.Use(tokenFor(model.TenantContacts))
		r.Get("/get-contacts/{userid}", contactsHandler.List)
		r.Get("/get-contact/{id}", contactsHandler.Get)
		r.Post("/add-contact/{userid}", contactsHandler.Add)
		r.Put("/update-contact/{id}", contactsHandler.Update)
		r.Delete("/delete-contact/{id}", contactsHandler.Delete)
	})

	// --- コースプラットフォーム（edlearn） ---
	coursesHandler := NewCoursesHandler(deps.Courses)
	purchaseHandler := NewPurchaseHandler(deps.Purchase)
	r.Get("/get-courses", coursesHandler.ListCourses)
	r.Post("/highfive", coursesHandler.SubmitHighfive)
	r.Group(func(r chi.Router) {
		r.Use(tokenFor(model.TenantCourses))
		r.Post("/add-course", coursesHandler.AddCourse)
		r.Patch("/edit-course", coursesHandler.EditCourse)
		r.Delete("/delete-course", coursesHandler.DeleteCourse)
		r.Post("/add-video", coursesHandler.AddVideo)
		r.Delete("/delete-video", coursesHandler.DeleteVideo)
		r.Post("/get-course-videos", coursesHandler.CourseVideos)
		r.Post("/razorpay", coursesHandler.CreatePaymentOrder)
		r.Patch("/buy-course", purchaseHandler.BuyCourse)
	})

	return r
}

// healthHandler はDB接続を確認し、接続できない場合は503を返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, "database unavailable", false, middleware.Envelope{
					"database": "down",
				})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, "ok", true, middleware.Envelope{"database": "up"})
	}
}
