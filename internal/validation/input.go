package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/design-orders-backend/internal/pkg/apperror"
)

// Константы валидации
const (
	MinOrderTitleLength = 3
	MaxOrderTitleLength = 200
	MaxBriefLength      = 5000
	MaxCommentLength    = 2000
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return invalid("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return invalid("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateOrderTitle проверяет заголовок заказа.
func ValidateOrderTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("заголовок заказа обязателен")
	}
	return ValidateLength("заголовок заказа", title, MinOrderTitleLength, MaxOrderTitleLength)
}

// ValidateBrief проверяет техническое задание. Оно необязательно.
func ValidateBrief(brief string) error {
	return ValidateLength("техническое задание", strings.TrimSpace(brief), 0, MaxBriefLength)
}

// ValidateComment проверяет свободный текст: комментарий к правке, причину спора или отмены.
func ValidateComment(fieldName, value string) error {
	return ValidateLength(fieldName, strings.TrimSpace(value), 0, MaxCommentLength)
}

func invalid(format string, args ...any) error {
	return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf(format, args...))
}
