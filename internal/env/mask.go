package env

import (
	"regexp"
	"strings"
)

var (
	tokenPattern     = regexp.MustCompile(`(ghp_|gho_|github_pat_|ghs_|ghu_|sk-|xox[bp]-)\S+`)
	secretKeyPattern = regexp.MustCompile(`(?i)(TOKEN|SECRET|PASSWORD|PASSWD|API_?KEY|PRIVATE_KEY|CREDENTIAL)`)
)

// MaskValue는 비밀로 보이는 환경변수 값을 마스킹한다.
// key 이름이 비밀 패턴이면 값 전체를, 아니면 값 안의 토큰 패턴만 가린다.
func MaskValue(key, value string) string {
	if value == "" {
		return value
	}
	if secretKeyPattern.MatchString(key) {
		return "****"
	}
	return tokenPattern.ReplaceAllStringFunc(value, func(match string) string {
		for _, prefix := range []string{"github_pat_", "ghp_", "gho_", "ghs_", "ghu_", "sk-", "xoxb-", "xoxp-"} {
			if strings.HasPrefix(match, prefix) {
				return prefix + "****"
			}
		}
		return match
	})
}

// Masked는 MaskValue를 적용한 사본을 반환한다.
func Masked(env map[string]string) map[string]string {
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = MaskValue(k, v)
	}
	return out
}
