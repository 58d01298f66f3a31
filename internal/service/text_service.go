package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/qss-platform/resident-service/internal/domain"
	"github.com/qss-platform/resident-service/internal/repository"
	"github.com/qss-platform/resident-service/pkg/util"
)

const textCacheTTL = 10 * time.Minute

// TextService resolves localized message templates. Lookups fall back from
// the requested language to Russian; a key missing in both renders as the
// bracketed key so a gap is visible instead of silent.
type TextService struct {
	texts  repository.BotTextRepository
	cache  *redis.Client
	logger *zap.Logger
}

func NewTextService(texts repository.BotTextRepository, cache *redis.Client, logger *zap.Logger) *TextService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextService{texts: texts, cache: cache, logger: logger}
}

// Text returns the template for key in the given language, with {name}
// placeholders substituted from args.
func (s *TextService) Text(ctx context.Context, key, language string, args map[string]string) string {
	language = domain.NormalizeLanguage(language)

	template, found := s.lookup(ctx, key, language)
	if !found && language != domain.LanguageRussian {
		template, found = s.lookup(ctx, key, domain.LanguageRussian)
	}
	if !found {
		s.logger.Warn("missing bot text", zap.String("key", key), zap.String("language", language))
		return "[" + key + "]"
	}

	for name, value := range args {
		template = strings.ReplaceAll(template, "{"+name+"}", value)
	}
	return template
}

func (s *TextService) lookup(ctx context.Context, key, language string) (string, bool) {
	cacheKey := fmt.Sprintf("bot_text:%s:%s", language, key)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			return cached, true
		}
	}

	value, found, err := s.texts.GetValue(ctx, key, language)
	if err != nil {
		s.logger.Error("bot text lookup failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !found {
		return "", false
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, value, textCacheTTL).Err(); err != nil {
			s.logger.Warn("bot text cache write failed", zap.Error(err))
		}
	}
	return value, true
}

// Upsert stores or replaces a template and drops its cached copy.
func (s *TextService) Upsert(ctx context.Context, text domain.BotText) error {
	if text.Key == "" {
		return util.NewValidationError("text key required", nil)
	}
	text.Language = domain.NormalizeLanguage(text.Language)
	if err := s.texts.Upsert(ctx, &text); err != nil {
		return util.MapError(err)
	}
	if s.cache != nil {
		cacheKey := fmt.Sprintf("bot_text:%s:%s", text.Language, text.Key)
		if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
			s.logger.Warn("bot text cache invalidation failed", zap.Error(err))
		}
	}
	return nil
}

// ListAll returns every stored template, for the dashboard editor.
func (s *TextService) ListAll(ctx context.Context) ([]domain.BotText, error) {
	texts, err := s.texts.ListAll(ctx)
	if err != nil {
		return nil, util.MapError(err)
	}
	return texts, nil
}
