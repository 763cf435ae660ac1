// Package courses はコースプラットフォーム（edlearn）テナントのドメインロジックを提供する。
// コースと動画の変更は管理者のみ、動画の閲覧は購入者と管理者のみに許可する。
package courses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/forky/internal/authz"
	"github.com/hitoshi/forky/internal/model"
	"github.com/hitoshi/forky/internal/payment"
	"github.com/hitoshi/forky/internal/repository"
	"github.com/hitoshi/forky/internal/security"
)

// OrderCreator は決済プロバイダーへの注文作成に必要なインターフェース。
type OrderCreator interface {
	CreateOrder(ctx context.Context, amount int64, receipt string) (*payment.Order, error)
}

// CourseInput はコース作成の入力値を表す。
type CourseInput struct {
	Title       string
	Description string
	Summary     string
	Thumbnail   string
	Instructor  string
	Cost        float64
	ComingSoon  bool
}

// VideoInput は動画作成の入力値を表す。WeekとDayは1以上。
type VideoInput struct {
	CourseID    string
	Title       string
	Description string
	URL         string
	Week        int
	Day         int
}

// HighfiveInput はフィードバック投稿の入力値を表す。
type HighfiveInput struct {
	Fullname string
	Email    string
	Message  string
}

// DeleteReport はコース削除の結果を表す。
// コースの削除後に動画の削除だけが失敗した場合、VideosDeletedはfalseになる。
type DeleteReport struct {
	CourseID      string
	VideosDeleted bool
	VideoCount    int64
}

// Service はコースプラットフォームのサービス層。
type Service struct {
	users     repository.CourseUserRepository
	courses   repository.CourseRepository
	videos    repository.VideoRepository
	highfives repository.HighfiveRepository
	orders    OrderCreator
	guard     *authz.Guard
	sanitizer security.TextSanitizer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	users repository.CourseUserRepository,
	courses repository.CourseRepository,
	videos repository.VideoRepository,
	highfives repository.HighfiveRepository,
	orders OrderCreator,
	sanitizer security.TextSanitizer,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:     users,
		courses:   courses,
		videos:    videos,
		highfives: highfives,
		orders:    orders,
		guard:     authz.NewGuard(users, logger),
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Profile はトークンのユーザーのプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.CourseUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUnauthorizedError("user auto login failed")
	}
	return user, nil
}

// ListCourses は全コースを返す。
func (s *Service) ListCourses(ctx context.Context) ([]*model.Course, error) {
	courses, err := s.courses.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("コース一覧の取得に失敗しました: %w", err)
	}
	return courses, nil
}

// AddCourse は管理者としてコースを作成する。
func (s *Service) AddCourse(ctx context.Context, identity string, in CourseInput) (*model.Course, error) {
	if _, err := s.guard.RequireAdmin(ctx, identity); err != nil {
		return nil, err
	}

	course := &model.Course{
		Title:       s.sanitizer.Sanitize(in.Title),
		Description: s.sanitizer.Sanitize(in.Description),
		Summary:     s.sanitizer.Sanitize(in.Summary),
		Thumbnail:   strings.TrimSpace(in.Thumbnail),
		Instructor:  s.sanitizer.Sanitize(in.Instructor),
		Cost:        in.Cost,
		ComingSoon:  in.ComingSoon,
	}
	if missing := missingFields(map[string]string{
		"title": course.Title, "summary": course.Summary, "instructor": course.Instructor,
	}, "title", "summary", "instructor"); len(missing) > 0 {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", missing...)
	}
	if course.Thumbnail != "" && !security.IsHTTPURL(course.Thumbnail) {
		return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "thumbnail must be an http(s) URL")
	}
	if course.Cost < 0 {
		return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "cost must not be negative")
	}

	now := s.now()
	course.ID = s.newID()
	course.CreatedAt = now
	course.UpdatedAt = now
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, fmt.Errorf("コースの作成に失敗しました: %w", err)
	}

	s.logger.Info("course created", slog.String("course_id", course.ID), slog.String("user_id", identity))
	return course, nil
}

// EditCourse は管理者としてコースを部分更新する。
func (s *Service) EditCourse(ctx context.Context, identity, courseID string, update model.CourseUpdate) (*model.Course, error) {
	if _, err := s.guard.RequireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	if err := requireID(courseID, "course_id"); err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, model.NewValidationError(model.ErrCodeMissingFields, "no course fields to update")
	}

	for _, field := range []*string{update.Title, update.Summary, update.Instructor, update.Description} {
		if field != nil {
			*field = s.sanitizer.Sanitize(*field)
		}
	}
	for name, field := range map[string]*string{"title": update.Title, "summary": update.Summary, "instructor": update.Instructor} {
		if field != nil && *field == "" {
			return nil, model.NewValidationError(model.ErrCodeInvalidRequest, name+" must not be empty")
		}
	}
	if update.Thumbnail != nil {
		trimmed := strings.TrimSpace(*update.Thumbnail)
		if trimmed != "" && !security.IsHTTPURL(trimmed) {
			return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "thumbnail must be an http(s) URL")
		}
		update.Thumbnail = &trimmed
	}
	if update.Cost != nil && *update.Cost < 0 {
		return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "cost must not be negative")
	}

	course, err := s.courses.Update(ctx, courseID, update)
	if err != nil {
		return nil, fmt.Errorf("コースの更新に失敗しました: %w", err)
	}
	if course == nil {
		return nil, model.NewCourseNotFoundError()
	}
	return course, nil
}

// DeleteCourse は管理者としてコースを削除し、続けて所属する動画を削除する。
// 2段階目の失敗はエラーにせず、DeleteReport.VideosDeletedで報告する。
// 残った動画は照合ジョブの孤立動画削除で回収される。
func (s *Service) DeleteCourse(ctx context.Context, identity, courseID string) (*DeleteReport, error) {
	if _, err := s.guard.RequireAdmin(ctx, identity); err != nil {
		return nil, err
	}
	if err := requireID(courseID, "course_id"); err != nil {
		return nil, err
	}

	deleted, err := s.courses.DeleteByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("コースの削除に失敗しました: %w", err)
	}
	if !deleted {
		return nil, model.NewCourseNotFoundError()
	}

	report := &DeleteReport{CourseID: courseID}
	count, err := s.videos.DeleteByCourseID(ctx, courseID)
	if err != nil {
		s.logger.Error("course deleted but video cleanup failed",
			slog.String("course_id", courseID),
			slog.String("error", err.Error()),
		)
		return report, nil
	}
	report.VideosDeleted = true
	report.VideoCount = count
	return report, nil
}

// AddVideo は管理者として動画を作成する。参照先のコースが存在しない場合は404を返す。
func (s *Service) AddVideo(ctx context.Context, identity string, in VideoInput) (*model.Video, error) {
	if _, err := s.guard.RequireAdmin(ctx, identity); err != nil {
		return nil, err
	}

	video := &model.Video{
		CourseID:    strings.TrimSpace(in.CourseID),
		Title:       s.sanitizer.Sanitize(in.Title),
		Description: s.sanitizer.Sanitize(in.Description),
		URL:         strings.TrimSpace(in.URL),
		Week:        in.Week,
		Day:         in.Day,
	}
	missing := missingFields(map[string]string{
		"course": video.CourseID, "title": video.Title, "url": video.URL,
	}, "course", "title", "url")
	if video.Week <= 0 {
		missing = append(missing, "week")
	}
	if video.Day <= 0 {
		missing = append(missing, "day")
	}
	if len(missing) > 0 {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", missing...)
	}
	if err := requireID(video.CourseID, "course"); err != nil {
		return nil, err
	}
	if !security.IsHTTPURL(video.URL) {
		return nil, model.NewValidationError(model.ErrCodeInvalidRequest, "url must be an http(s) URL")
	}

	video.ID = s.newID()
	video.CreatedAt = s.now()
	created, err := s.videos.CreateForCourse(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("動画の作成に失敗しました: %w", err)
	}
	if !created {
		return nil, model.NewCourseNotFoundError()
	}
	return video, nil
}

// DeleteVideo は管理者として動画を削除する。
func (s *Service) DeleteVideo(ctx context.Context, identity, videoID string) error {
	if _, err := s.guard.RequireAdmin(ctx, identity); err != nil {
		return err
	}
	if err := requireID(videoID, "video_id"); err != nil {
		return err
	}

	deleted, err := s.videos.DeleteByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("動画の削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewVideoNotFoundError()
	}
	return nil
}

// CourseVideos は購入者または管理者にコースの動画一覧を返す。
// 未購入の場合、コースの存在有無にかかわらず同じ403を返す。
func (s *Service) CourseVideos(ctx context.Context, identity, courseID string) ([]*model.Video, error) {
	if err := requireID(courseID, "course_id"); err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireEntitled(ctx, identity, courseID); err != nil {
		return nil, err
	}

	videos, err := s.videos.ListByCourseID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("動画一覧の取得に失敗しました: %w", err)
	}
	return videos, nil
}

// CreatePaymentOrder は決済プロバイダーに注文を作成する。金額は主単位の正の整数。
func (s *Service) CreatePaymentOrder(ctx context.Context, identity string, amount int64) (*payment.Order, error) {
	if amount <= 0 {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", "amount").
			WithMessage("amount must be a positive integer")
	}

	order, err := s.orders.CreateOrder(ctx, amount, "rcpt_"+s.newID())
	if err != nil {
		if errors.Is(err, payment.ErrInvalidAmount) {
			return nil, model.NewValidationError(model.ErrCodeInvalidAmount, "amount must be a positive integer")
		}
		s.logger.Error("payment order creation failed",
			slog.String("user_id", identity),
			slog.String("error", err.Error()),
		)
		return nil, model.NewDependencyError(model.ErrCodeUpstream, "payment order could not be created")
	}
	return order, nil
}

// SubmitHighfive は公開フィードバックフォームの投稿を保存する。
func (s *Service) SubmitHighfive(ctx context.Context, in HighfiveInput) (*model.Highfive, error) {
	h := &model.Highfive{
		Fullname: s.sanitizer.Sanitize(in.Fullname),
		Email:    strings.TrimSpace(in.Email),
		Message:  s.sanitizer.Sanitize(in.Message),
	}
	if missing := missingFields(map[string]string{
		"fullname": h.Fullname, "email": h.Email, "message": h.Message,
	}, "fullname", "email", "message"); len(missing) > 0 {
		return nil, model.NewMissingFieldsError(http.StatusBadRequest, "required", missing...)
	}

	h.ID = s.newID()
	h.CreatedAt = s.now()
	if err := s.highfives.Create(ctx, h); err != nil {
		return nil, fmt.Errorf("フィードバックの保存に失敗しました: %w", err)
	}
	return h, nil
}

// PromoteAdmin はemailで指定したユーザーを管理者に昇格する。
// HTTPからは呼び出せず、運用コマンドからのみ使う。
func (s *Service) PromoteAdmin(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return model.NewMissingFieldsError(http.StatusBadRequest, "required", "email")
	}

	updated, err := s.users.UpdateRoleByEmail(ctx, email, model.RoleAdmin)
	if err != nil {
		return fmt.Errorf("権限の更新に失敗しました: %w", err)
	}
	if !updated {
		return model.NewUserNotFoundError()
	}
	s.logger.Info("user promoted to admin", slog.String("email", email))
	return nil
}

// missingFields は値が空のフィールド名をorderの順に返す。
func missingFields(values map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if values[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// requireID はIDが存在しUUID形式であることを確認する。
func requireID(id, field string) error {
	if strings.TrimSpace(id) == "" {
		return model.NewMissingFieldsError(http.StatusBadRequest, "required", field)
	}
	if _, err := uuid.Parse(id); err != nil {
		return model.NewInvalidIDError("invalid " + field)
	}
	return nil
}
