package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/forky/internal/courses"
	"github.com/hitoshi/forky/internal/middleware"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/payment"
)

// CoursesServiceInterface はコースハンドラーが必要とするサービスインターフェース。
type CoursesServiceInterface interface {
	Profile(ctx context.Context, userID string) (*model.CourseUser, error)
	ListCourses(ctx context.Context) ([]*model.Course, error)
	AddCourse(ctx context.Context, identity string, in courses.CourseInput) (*model.Course, error)
	EditCourse(ctx context.Context, identity, courseID string, update model.CourseUpdate) (*model.Course, error)
	DeleteCourse(ctx context.Context, identity, courseID string) (*courses.DeleteReport, error)
	AddVideo(ctx context.Context, identity string, in courses.VideoInput) (*model.Video, error)
	DeleteVideo(ctx context.Context, identity, videoID string) error
	CourseVideos(ctx context.Context, identity, courseID string) ([]*model.Video, error)
	CreatePaymentOrder(ctx context.Context, identity string, amount int64) (*payment.Order, error)
	SubmitHighfive(ctx context.Context, in courses.HighfiveInput) (*model.Highfive, error)
}

// CoursesHandler はコースプラットフォームのHTTPハンドラー。
type CoursesHandler struct {
	service CoursesServiceInterface
}

// NewCoursesHandler はCoursesHandlerを生成する。
func NewCoursesHandler(service CoursesServiceInterface) *CoursesHandler {
	return &CoursesHandler{service: service}
}

type courseRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Summary     string  `json:"summary"`
	Thumbnail   string  `json:"thumbnail"`
	Instructor  string  `json:"instructor"`
	Cost        float64 `json:"cost"`
	ComingSoon  bool    `json:"coming_soon"`
}

type courseUpdateFields struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Summary     *string  `json:"summary"`
	Thumbnail   *string  `json:"thumbnail"`
	Instructor  *string  `json:"instructor"`
	Cost        *float64 `json:"cost"`
	ComingSoon  *bool    `json:"coming_soon"`
}

type editCourseRequest struct {
	CourseID string             `json:"course_id"`
	Update   courseUpdateFields `json:"update"`
}

type courseIDRequest struct {
	CourseID string `json:"course_id"`
}

type videoRequest struct {
	Course      string `json:"course"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Week        int    `json:"week"`
	Day         int    `json:"day"`
}

type videoIDRequest struct {
	VideoID string `json:"video_id"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type highfiveRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type courseResponse struct {
	ID          string  `json:"_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Summary     string  `json:"summary"`
	Thumbnail   string  `json:"thumbnail"`
	Instructor  string  `json:"instructor"`
	Cost        float64 `json:"cost"`
	ComingSoon  bool    `json:"coming_soon"`
}

func toCourseResponse(c *model.Course) courseResponse {
	return courseResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Summary:     c.Summary,
		Thumbnail:   c.Thumbnail,
		Instructor:  c.Instructor,
		Cost:        c.Cost,
		ComingSoon:  c.ComingSoon,
	}
}

type videoResponse struct {
	ID          string `json:"_id"`
	Course      string `json:"course"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Week        int    `json:"week"`
	Day         int    `json:"day"`
}

func toVideoResponse(v *model.Video) videoResponse {
	return videoResponse{
		ID:          v.ID,
		Course:      v.CourseID,
		Title:       v.Title,
		Description: v.Description,
		URL:         v.URL,
		Week:        v.Week,
		Day:         v.Day,
	}
}

type courseUserResponse struct {
	ID            string   `json:"_id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Role          string   `json:"role"`
	CoursesBought []string `json:"courses_bought"`
}

// CoursesProfile はautologin用のプロフィール生成関数を返す。
func CoursesProfile(service CoursesServiceInterface) ProfileFunc {
	return func(ctx context.Context, userID string) (any, error) {
		user, err := service.Profile(ctx, userID)
		if err != nil {
			return nil, err
		}
		return courseUserResponse{
			ID:            user.ID,
			Name:          user.Name,
			Email:         user.Email,
			Role:          string(user.Role),
			CoursesBought: nonNilStrings(user.CoursesBought),
		}, nil
	}
}

// ListCourses はコース一覧を返す。
// GET /get-courses
func (h *CoursesHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCourses(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]courseResponse, 0, len(list))
	for _, c := range list {
		resp = append(resp, toCourseResponse(c))
	}
	middleware.WriteJSON(w, http.StatusAccepted, "courses retrieved", true, middleware.Envelope{
		"courses": resp,
	})
}

// AddCourse はコースを作成する。
// POST /add-course
func (h *CoursesHandler) AddCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req courseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.service.AddCourse(r.Context(), userID, courses.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		Summary:     req.Summary,
		Thumbnail:   req.Thumbnail,
		Instructor:  req.Instructor,
		Cost:        req.Cost,
		ComingSoon:  req.ComingSoon,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "course added", true, middleware.Envelope{
		"course": toCourseResponse(course),
	})
}

// EditCourse はコースを部分更新する。
// PATCH /edit-course
func (h *CoursesHandler) EditCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req editCourseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	course, err := h.service.EditCourse(r.Context(), userID, req.CourseID, model.CourseUpdate{
		Title:       req.Update.Title,
		Description: req.Update.Description,
		Summary:     req.Update.Summary,
		Thumbnail:   req.Update.Thumbnail,
		Instructor:  req.Update.Instructor,
		Cost:        req.Update.Cost,
		ComingSoon:  req.Update.ComingSoon,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "course updated", true, middleware.Envelope{
		"course": toCourseResponse(course),
	})
}

// DeleteCourse はコースと所属する動画を削除する。
// 動画の削除だけが失敗した場合もコースは削除済みのため200を返し、videos_deletedで区別する。
// DELETE /delete-course
func (h *CoursesHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req courseIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.service.DeleteCourse(r.Context(), userID, req.CourseID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	message := "course deleted"
	if !report.VideosDeleted {
		message = "course deleted, videos pending cleanup"
	}
	middleware.WriteJSON(w, http.StatusOK, message, true, middleware.Envelope{
		"course_id":      report.CourseID,
		"videos_deleted": report.VideosDeleted,
		"video_count":    report.VideoCount,
	})
}

// AddVideo は動画を作成する。
// POST /add-video
func (h *CoursesHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req videoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	video, err := h.service.AddVideo(r.Context(), userID, courses.VideoInput{
		CourseID:    req.Course,
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
		Week:        req.Week,
		Day:         req.Day,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "video added", true, middleware.Envelope{
		"video": toVideoResponse(video),
	})
}

// DeleteVideo は動画を削除する。
// DELETE /delete-video
func (h *CoursesHandler) DeleteVideo(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req videoIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.DeleteVideo(r.Context(), userID, req.VideoID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "video deleted", true, nil)
}

// CourseVideos は購入者または管理者にコースの動画一覧を返す。
// POST /get-course-videos
func (h *CoursesHandler) CourseVideos(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req courseIDRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	videos, err := h.service.CourseVideos(r.Context(), userID, req.CourseID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	resp := make([]videoResponse, 0, len(videos))
	for _, v := range videos {
		resp = append(resp, toVideoResponse(v))
	}
	middleware.WriteJSON(w, http.StatusAccepted, "videos retrieved", true, middleware.Envelope{
		"videos": resp,
	})
}

// CreatePaymentOrder は決済プロバイダーに注文を作成する。
// POST /razorpay
func (h *CoursesHandler) CreatePaymentOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.CreatePaymentOrder(r.Context(), userID, req.Amount)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, "order created", true, middleware.Envelope{
		"order": order,
	})
}

// SubmitHighfive は公開フィードバックフォームの投稿を保存する。
// POST /highfive
func (h *CoursesHandler) SubmitHighfive(w http.ResponseWriter, r *http.Request) {
	var req highfiveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if _, err := h.service.SubmitHighfive(r.Context(), courses.HighfiveInput{
		Fullname: req.Fullname,
		Email:    req.Email,
		Message:  req.Message,
	}); err != nil {
		handleServiceError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, "highfive received", true, nil)
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
