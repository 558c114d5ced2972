package dto

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"focusflow/internal/feature/auth/domain/entity"
)

// UserRes はクライアントに返すユーザー表現です。パスワードのフィールドは持ちません。
type UserRes struct {
	ID          uint                `json:"id"`
	Email       string              `json:"email"`
	FirstName   string              `json:"firstName"`
	LastName    string              `json:"lastName"`
	DateOfBirth *openapi_types.Date `json:"dateOfBirth"`
	Country     string              `json:"country"`
	Avatar      string              `json:"avatar"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// NewUserRes はエンティティからレスポンスを生成します。
func NewUserRes(u *entity.User) UserRes {
	res := UserRes{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Country:   u.Country,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.DateOfBirth != nil {
		res.DateOfBirth = &openapi_types.Date{Time: *u.DateOfBirth}
	}
	return res
}
