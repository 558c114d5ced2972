// Package dto はauthフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import "encoding/json"

// RegisterReq は/api/auth/registerエンドポイントのリクエストボディを表します。
// DateOfBirthは"YYYY-MM-DD"またはRFC 3339形式の文字列を受け付けます。
type RegisterReq struct {
	Email       string          `json:"email" binding:"required,email"`
	Password    string          `json:"password" binding:"required"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	DateOfBirth json.RawMessage `json:"dateOfBirth"`
	Country     string          `json:"country"`
}

// LoginReq は/api/auth/loginエンドポイントのリクエストボディを表します。
type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileReq はプロフィールの部分更新を表します。
// 省略されたフィールドはnilとなり、変更されません。
type UpdateProfileReq struct {
	FirstName   *string         `json:"firstName"`
	LastName    *string         `json:"lastName"`
	DateOfBirth json.RawMessage `json:"dateOfBirth"`
	Country     *string         `json:"country"`
}
