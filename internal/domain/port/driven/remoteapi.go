package driven

import (
	"context"

	"github.com/fduhole/dxkit/internal/domain/model"
)

// AuthAPI defines the driven port for the authentication service.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (model.Credential, error)
	// Register creates an account when create is true, otherwise resets the
	// password of an existing one. Both return a fresh credential.
	Register(ctx context.Context, email, password, verification string, create bool) (model.Credential, error)
	RefreshToken(ctx context.Context, refreshToken string) (model.Credential, error)
	Logout(ctx context.Context) error
	LoadUserInfo(ctx context.Context) (model.User, error)
}

// NotificationAPI defines the driven port for push token registration.
type NotificationAPI interface {
	UploadNotificationToken(ctx context.Context, deviceID, token string) error
	DeleteNotificationToken(ctx context.Context, deviceID string) error
}

// ForumAPI defines the driven port for the treehole forum service.
type ForumAPI interface {
	LoadTags(ctx context.Context) ([]model.Tag, error)
	LoadDivisions(ctx context.Context) ([]model.Division, error)
	LoadFavoriteIDs(ctx context.Context) ([]int, error)
	// ToggleFavorite adds or removes holeID and returns the resulting id list.
	ToggleFavorite(ctx context.Context, holeID int, add bool) ([]int, error)
}

// CurriculumAPI defines the driven port for the course review service.
type CurriculumAPI interface {
	// LoadCourseHash returns a digest of the current course catalog.
	LoadCourseHash(ctx context.Context) (string, error)
	LoadCourseGroups(ctx context.Context) ([]model.CourseGroup, error)
}
