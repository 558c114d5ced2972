// Package usecase はauthフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"focusflow/internal/feature/auth/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8

	// MaxAvatarSize はアバター画像の最大バイト数です。
	MaxAvatarSize = 5 << 20

	// dummyHash はユーザーが存在しない場合のタイミング攻撃緩和用ハッシュです。
	dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// Update は既存ユーザーの全フィールドを保存します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	Update(ctx context.Context, user *entity.User) error
}

// JWTGenerator はセッショントークン生成のインターフェースを定義します。
type JWTGenerator interface {
	// GenerateToken は指定されたユーザーの署名済みJWTトークンを生成します。
	GenerateToken(userID uint) (string, error)
}

// JWTParser はセッショントークン検証のインターフェースを定義します。
type JWTParser interface {
	// ParseToken は署名と有効期限を検証し、トークンのユーザーIDを返します。
	ParseToken(token string) (uint, error)
}

// AvatarStorage はアバター画像の保存先を抽象化します。
type AvatarStorage interface {
	// Save は画像を保存し、ユーザーに公開する参照（パスまたはURL）を返します。
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// RegisterInput は新規登録の入力値です。
type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Country     string
}

// ProfilePatch はプロフィールの部分更新です。nilのフィールドは変更しません。
type ProfilePatch struct {
	FirstName   *string
	LastName    *string
	Country     *string
	DateOfBirth *time.Time
	// ClearDateOfBirth が true の場合、生年月日をnullにします。
	ClearDateOfBirth bool
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users   UserRepository
	tokens  JWTGenerator
	parser  JWTParser
	avatars AvatarStorage
	cost    int
	now     func() time.Time
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
func NewAuthUsecase(users UserRepository, tokens JWTGenerator, parser JWTParser, avatars AvatarStorage) *authUsecase {
	return &authUsecase{
		users:   users,
		tokens:  tokens,
		parser:  parser,
		avatars: avatars,
		cost:    bcrypt.DefaultCost,
		now:     time.Now,
	}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, minPasswordLength)
	}
	return nil
}

// Register はハッシュ化されたパスワードで新規ユーザーを登録し、パスワードを除いたユーザーを返します。
func (u *authUsecase) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := u.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateUser
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := u.now()
	user := &entity.User{
		Email:       email,
		Password:    string(hashed),
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: in.DateOfBirth,
		Country:     in.Country,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := u.users.Create(ctx, user); err != nil {
		// 同時登録でユニーク制約に違反した場合も重複として扱う
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user.Sanitized(), nil
}

// Login はユーザーを認証し、成功時にパスワードを除いたユーザーと署名済みトークンを返します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := u.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	passwordHash := dummyHash
	if err == nil {
		passwordHash = user.Password
	}

	// 第1引数はハッシュ化パスワード、第2引数は平文パスワード
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	// ユーザー未検出またはパスワード不一致の場合、汎用エラーを返す
	if err != nil || compareErr != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := u.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user.Sanitized(), token, nil
}

// VerifySession はトークンを検証し、現在も存在するユーザーのIDを返します。
// 署名が正しくてもユーザーが存在しなければ無効です。
func (u *authUsecase) VerifySession(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrUnauthenticated
	}
	userID, err := u.parser.ParseToken(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if _, err := u.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return 0, fmt.Errorf("%w: user no longer exists", ErrUnauthenticated)
		}
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}
	return userID, nil
}

// GetProfile はパスワードを除いたユーザー情報を返します。
func (u *authUsecase) GetProfile(ctx context.Context, userID uint) (*entity.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// UpdateProfile は指定されたフィールドのみを更新します。省略されたフィールドは変更されません。
func (u *authUsecase) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (*entity.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Country != nil {
		user.Country = *patch.Country
	}
	if patch.ClearDateOfBirth {
		user.DateOfBirth = nil
	} else if patch.DateOfBirth != nil {
		dob := *patch.DateOfBirth
		user.DateOfBirth = &dob
	}
	user.UpdatedAt = u.now()

	if err := u.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}

// SetAvatar は画像を保存し、その参照をユーザーに記録します。
func (u *authUsecase) SetAvatar(ctx context.Context, userID uint, data []byte) (*entity.User, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no file uploaded", ErrValidation)
	}
	if len(data) > MaxAvatarSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, MaxAvatarSize)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: file is not an image", ErrValidation)
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), mt.Extension())
	ref, err := u.avatars.Save(ctx, key, mt.String(), data)
	if err != nil {
		return nil, fmt.Errorf("failed to store avatar: %w", err)
	}

	user.Avatar = ref
	user.UpdatedAt = u.now()
	if err := u.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.Sanitized(), nil
}
