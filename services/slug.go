package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

const (
	teamSlugMaxLength       = 40
	tournamentSlugMaxLength = 50
	slugSuffixLength        = 4
	teamCodeLength          = 6
	uniquenessAttempts      = 20

	slugSuffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	teamCodeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// normalizeSlug приводит название к url-безопасному виду: нижний регистр,
// только [a-z0-9-], дефисы схлопнуты, не длиннее maxLength.
func normalizeSlug(name string, maxLength int) string {
	var b strings.Builder
	lastDash := true // подавляем ведущий дефис

	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) && r <= unicode.MaxASCII, unicode.IsDigit(r) && r <= unicode.MaxASCII:
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxLength {
		slug = strings.TrimRight(slug[:maxLength], "-")
	}
	return slug
}

func randomString(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random string: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// generateUniqueSlug пробует базовый слаг как есть, затем добавляет случайный
// суффикс. После uniquenessAttempts неудач возвращает ErrSlugExhausted.
func generateUniqueSlug(ctx context.Context, base, fallback string, maxLength int, exists func(ctx context.Context, slug string) (bool, error)) (string, error) {
	slug := normalizeSlug(base, maxLength)
	if slug == "" {
		slug = fallback
	}

	taken, err := exists(ctx, slug)
	if err != nil {
		return "", err
	}
	if !taken {
		return slug, nil
	}

	// Обрезаем базу так, чтобы суффикс влез в лимит.
	trimmed := slug
	if len(trimmed) > maxLength-slugSuffixLength-1 {
		trimmed = strings.TrimRight(trimmed[:maxLength-slugSuffixLength-1], "-")
	}

	for attempt := 0; attempt < uniquenessAttempts; attempt++ {
		suffix, err := randomString(slugSuffixAlphabet, slugSuffixLength)
		if err != nil {
			return "", err
		}
		candidate := trimmed + "-" + suffix
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	return "", ErrSlugExhausted
}

// generateUniqueCode выдаёт код приглашения из teamCodeAlphabet длиной
// teamCodeLength. Коды вводятся вручную, поэтому алфавит только верхний
// регистр и цифры.
func generateUniqueCode(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	for attempt := 0; attempt < uniquenessAttempts; attempt++ {
		code, err := randomString(teamCodeAlphabet, teamCodeLength)
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrSlugExhausted
}
