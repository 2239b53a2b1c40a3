package contest

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/marcelojr/track-battle/internal/domain"
)

// ObjectName monta o nome do objeto de áudio: {semana}_{usuario}_{unix ms}.{ext}.
func ObjectName(week domain.WeekKey, userName string, at time.Time, fileName, contentType string) string {
	return fmt.Sprintf("%s_%s_%d.%s", week, sanitize(userName), at.UnixMilli(), extension(fileName, contentType))
}

func sanitize(value string) string {
	if out := token(value); out != "" {
		return out
	}
	return "anon"
}

// token troca por hífen tudo que não for letra ou dígito ASCII.
func token(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

func extension(fileName, contentType string) string {
	if ext := strings.TrimPrefix(filepath.Ext(fileName), "."); ext != "" {
		if clean := token(strings.ToLower(ext)); clean != "" {
			return clean
		}
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}
	return "bin"
}
