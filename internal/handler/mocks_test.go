package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/forky/internal/auth"
	"github.com/hitoshi/forky/internal/contacts"
	"github.com/hitoshi/forky/internal/courses"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/payment"
	"github.com/hitoshi/forky/internal/purchase"
	"github.com/hitoshi/forky/internal/shop"
)

// --- モック定義 ---

type mockAccountService struct {
	tenant     model.Tenant
	registerFn func(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	loginFn    func(ctx context.Context, login, password string) (*auth.Session, error)
}

func (m *mockAccountService) Tenant() model.Tenant { return m.tenant }

func (m *mockAccountService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error) {
	return m.registerFn(ctx, in)
}

func (m *mockAccountService) Login(ctx context.Context, login, password string) (*auth.Session, error) {
	return m.loginFn(ctx, login, password)
}

type mockShopService struct {
	addProductFn   func(ctx context.Context, adminCode string, in shop.ProductInput) (*model.Product, error)
	listProductsFn func(ctx context.Context) ([]*model.Product, error)
	profileFn      func(ctx context.Context, userID string) (*model.ShopUser, error)
	updateCartFn   func(ctx context.Context, userID string, cart []json.RawMessage) (*model.ShopUser, error)
	confirmOrderFn func(ctx context.Context, userID string, cart, orders []json.RawMessage) (*model.ShopUser, error)
}

func (m *mockShopService) AddProduct(ctx context.Context, adminCode string, in shop.ProductInput) (*model.Product, error) {
	return m.addProductFn(ctx, adminCode, in)
}

func (m *mockShopService) ListProducts(ctx context.Context) ([]*model.Product, error) {
	return m.listProductsFn(ctx)
}

func (m *mockShopService) Profile(ctx context.Context, userID string) (*model.ShopUser, error) {
	return m.profileFn(ctx, userID)
}

func (m *mockShopService) UpdateCart(ctx context.Context, userID string, cart []json.RawMessage) (*model.ShopUser, error) {
	return m.updateCartFn(ctx, userID, cart)
}

func (m *mockShopService) ConfirmOrder(ctx context.Context, userID string, cart, orders []json.RawMessage) (*model.ShopUser, error) {
	return m.confirmOrderFn(ctx, userID, cart, orders)
}

type mockContactsService struct {
	profileFn func(ctx context.Context, userID string) (*model.ContactsUser, error)
	listFn    func(ctx context.Context, identity, pathUserID string) ([]*model.Contact, error)
	getFn     func(ctx context.Context, identity, contactID string) (*model.Contact, error)
	addFn     func(ctx context.Context, identity, pathUserID string, in contacts.ContactInput) (*model.Contact, error)
	updateFn  func(ctx context.Context, identity, contactID string, fields map[string]any) (*model.Contact, error)
	deleteFn  func(ctx context.Context, identity, contactID string) (*model.Contact, error)
}

func (m *mockContactsService) Profile(ctx context.Context, userID string) (*model.ContactsUser, error) {
	return m.profileFn(ctx, userID)
}

func (m *mockContactsService) List(ctx context.Context, identity, pathUserID string) ([]*model.Contact, error) {
	return m.listFn(ctx, identity, pathUserID)
}

func (m *mockContactsService) Get(ctx context.Context, identity, contactID string) (*model.Contact, error) {
	return m.getFn(ctx, identity, contactID)
}

func (m *mockContactsService) Add(ctx context.Context, identity, pathUserID string, in contacts.ContactInput) (*model.Contact, error) {
	return m.addFn(ctx, identity, pathUserID, in)
}

func (m *mockContactsService) Update(ctx context.Context, identity, contactID string, fields map[string]any) (*model.Contact, error) {
	return m.updateFn(ctx, identity, contactID, fields)
}

func (m *mockContactsService) Delete(ctx context.Context, identity, contactID string) (*model.Contact, error) {
	return m.deleteFn(ctx, identity, contactID)
}

type mockCoursesService struct {
	profileFn      func(ctx context.Context, userID string) (*model.CourseUser, error)
	listCoursesFn  func(ctx context.Context) ([]*model.Course, error)
	addCourseFn    func(ctx context.Context, identity string, in courses.CourseInput) (*model.Course, error)
	editCourseFn   func(ctx context.Context, identity, courseID string, update model.CourseUpdate) (*model.Course, error)
	deleteCourseFn func(ctx context.Context, identity, courseID string) (*courses.DeleteReport, error)
	addVideoFn     func(ctx context.Context, identity string, in courses.VideoInput) (*model.Video, error)
	deleteVideoFn  func(ctx context.Context, identity, videoID string) error
	courseVideosFn func(ctx context.Context, identity, courseID string) ([]*model.Video, error)
	createOrderFn  func(ctx context.Context, identity string, amount int64) (*payment.Order, error)
	highfiveFn     func(ctx context.Context, in courses.HighfiveInput) (*model.Highfive, error)
}

func (m *mockCoursesService) Profile(ctx context.Context, userID string) (*model.CourseUser, error) {
	return m.profileFn(ctx, userID)
}

func (m *mockCoursesService) ListCourses(ctx context.Context) ([]*model.Course, error) {
	return m.listCoursesFn(ctx)
}

func (m *mockCoursesService) AddCourse(ctx context.Context, identity string, in courses.CourseInput) (*model.Course, error) {
	return m.addCourseFn(ctx, identity, in)
}

func (m *mockCoursesService) EditCourse(ctx context.Context, identity, courseID string, update model.CourseUpdate) (*model.Course, error) {
	return m.editCourseFn(ctx, identity, courseID, update)
}

func (m *mockCoursesService) DeleteCourse(ctx context.Context, identity, courseID string) (*courses.DeleteReport, error) {
	return m.deleteCourseFn(ctx, identity, courseID)
}

func (m *mockCoursesService) AddVideo(ctx context.Context, identity string, in courses.VideoInput) (*model.Video, error) {
	return m.addVideoFn(ctx, identity, in)
}

func (m *mockCoursesService) DeleteVideo(ctx context.Context, identity, videoID string) error {
	return m.deleteVideoFn(ctx, identity, videoID)
}

func (m *mockCoursesService) CourseVideos(ctx context.Context, identity, courseID string) ([]*model.Video, error) {
	return m.courseVideosFn(ctx, identity, courseID)
}

func (m *mockCoursesService) CreatePaymentOrder(ctx context.Context, identity string, amount int64) (*payment.Order, error) {
	return m.createOrderFn(ctx, identity, amount)
}

func (m *mockCoursesService) SubmitHighfive(ctx context.Context, in courses.HighfiveInput) (*model.Highfive, error) {
	return m.highfiveFn(ctx, in)
}

type mockPurchaseWorkflow struct {
	buyFn func(ctx context.Context, req purchase.Request) (*purchase.Result, error)
}

func (m *mockPurchaseWorkflow) Buy(ctx context.Context, req purchase.Request) (*purchase.Result, error) {
	return m.buyFn(ctx, req)
}

// --- ヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// newJSONRequest はJSONボディ付きのリクエストを生成する。userIDが空でなければコンテキストに注入する。
func newJSONRequest(t *testing.T, method, path, userID string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	return req
}

// parseBody はレスポンスボディをmapとしてパースするヘルパー。
func parseBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Result().Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
