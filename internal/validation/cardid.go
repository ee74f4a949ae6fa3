// Package validation содержит функции валидации входных данных.
package validation

// IsValidCardID проверяет, что идентификатор карты похож на идентификатор леджера:
// непустой, разумной длины и из безопасного набора символов.
func IsValidCardID(cardID string) bool {
	if len(cardID) == 0 || len(cardID) > 64 {
		return false
	}

	for _, ch := range cardID {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '-' || ch == '_':
		default:
			return false
		}
	}

	return true
}
