// Package http はアプリケーションから外向きに使うHTTPクライアントの生成を提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient はFocusFlow APIを呼び出すためのHTTPクライアントを作成します。
//
// 設定:
//   - Jar: セッションCookie（jwt）を保持する。nilならCookieを保存しない
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - MaxIdleConns / IdleConnTimeout: 接続の再利用
//   - TLSHandshakeTimeout: HTTPSハンドシェイクの最大時間
//   - Client.Timeout: リクエスト全体のタイムアウト。応答しないサーバーで呼び出しが止まらないようにする
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にこのクライアントを使用すること
func NewHTTPClient(timeout time.Duration, jar http.CookieJar) *http.Client {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t, Jar: jar}
}
