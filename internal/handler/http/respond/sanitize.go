package respond

import (
	"regexp"
)

var (
	// Bearer トークンと Webhook シークレットのパターン
	bearerTokenPattern   = regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9._\-]+`)
	webhookSecretPattern = regexp.MustCompile(`hooks\.[^\s/]+/[^\s?]*\?[^\s]*token=[^\s&]+`)

	// データベースパスワードパターン（DSN内）
	dbPasswordPattern = regexp.MustCompile(`://([^:]+):([^@]+)@`)
)

// SanitizeError は機密情報をマスクしたエラーメッセージを返す
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()

	msg = bearerTokenPattern.ReplaceAllString(msg, "Bearer ****")
	msg = webhookSecretPattern.ReplaceAllString(msg, "hooks.****")

	// DBパスワードのマスク
	msg = dbPasswordPattern.ReplaceAllString(msg, "://$1:****@")

	return msg
}
