package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// UserThrottle ограничивает число изменяющих запросов одного пользователя в окне
type UserThrottle struct {
	limiter domain.RateLimitRepository
	limit   int
	window  time.Duration
	logger  zerolog.Logger
}

func NewUserThrottle(cfg config.APIUserRateLimitConfig, limiter domain.RateLimitRepository, logger *zerolog.Logger) *UserThrottle {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "throttle").Logger()
	}
	return &UserThrottle{
		limiter: limiter,
		limit:   cfg.Requests,
		window:  cfg.WindowDuration(),
		logger:  l,
	}
}

func (t *UserThrottle) enabled() bool {
	return t != nil && t.limiter != nil && t.limit > 0
}

func (t *UserThrottle) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.enabled() || !isWrite(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		// без валидного заголовка запрос отклонит обработчик
		userID, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(models.SharerUserHeader)), 10, 64)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, err := t.limiter.CheckRateLimit(r.Context(), userID, t.limit, t.window)
		if err != nil {
			t.logger.Error().Err(err).Int64("user_id", userID).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
