package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
)

// --- HTTP Response Helpers ---

// ErrorResponse returns a JSON error response with the given status code and message
func ErrorResponse(re *core.RequestEvent, status int, message string) error {
	return re.JSON(status, map[string]string{"error": message})
}

// NotFoundResponse returns a 404 JSON error response
func NotFoundResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusNotFound, message)
}

// BadRequestResponse returns a 400 JSON error response
func BadRequestResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusBadRequest, message)
}

// InternalErrorResponse returns a 500 JSON error response
func InternalErrorResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusInternalServerError, message)
}

// GoneResponse returns a 410 JSON error response
func GoneResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusGone, message)
}

// BadGatewayResponse returns a 502 JSON error response for upstream failures
func BadGatewayResponse(re *core.RequestEvent, message string) error {
	return ErrorResponse(re, http.StatusBadGateway, message)
}

// SuccessResponse returns a 200 JSON success response with a message
func SuccessResponse(re *core.RequestEvent, message string) error {
	return re.JSON(http.StatusOK, map[string]string{"message": message})
}

// DataResponse returns a 200 JSON response with arbitrary data
func DataResponse(re *core.RequestEvent, data any) error {
	return re.JSON(http.StatusOK, data)
}

// --- Pagination ---

// Pagination holds parsed page parameters
type Pagination struct {
	Page    int
	PerPage int
}

// Offset returns the record offset for the page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// TotalPages returns the page count for total items
func (p Pagination) TotalPages(total int) int {
	if p.PerPage <= 0 {
		return 0
	}
	return (total + p.PerPage - 1) / p.PerPage
}

// ParsePagination reads page/perPage query values with defaults and bounds
func ParsePagination(page, perPage string) Pagination {
	p, _ := strconv.Atoi(page)
	if p < 1 {
		p = 1
	}
	pp, _ := strconv.Atoi(perPage)
	if pp < 1 || pp > 500 {
		pp = 50
	}
	return Pagination{Page: p, PerPage: pp}
}

// --- Date Helpers ---

// ParseExpiryDate parses a date string in the formats PocketBase stores
func ParseExpiryDate(dateStr string) (time.Time, error) {
	formats := []string{
		"2006-01-02 15:04:05.000Z",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not parse date: %s", dateStr)
}

// IsExpired reports whether a stored expiry timestamp is in the past.
// Unparseable values count as expired.
func IsExpired(expiresAt string, now time.Time) bool {
	if expiresAt == "" {
		return false
	}
	t, err := ParseExpiryDate(expiresAt)
	if err != nil {
		return true
	}
	return now.After(t)
}

// --- Filter Helpers ---

var safeFilterPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// SafeFilterValue validates a value for use in PocketBase filter expressions.
// Only IDs and tokens (alphanumeric, dashes, underscores) are accepted.
func SafeFilterValue(value string) (string, error) {
	if !safeFilterPattern.MatchString(value) {
		return "", fmt.Errorf("invalid filter value: contains unsafe characters")
	}
	return value, nil
}

// JoinFilters combines non-empty filter expressions with &&
func JoinFilters(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " && ")
}

// NormalizeEmail normalizes an email address (lowercase, trimmed)
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail performs the same light check the forms use
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	return len(email) >= 5 && len(email) <= 254 && at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n")
}

// MaskEmail hides most of the local part: "jo***@example.com"
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local := email[:at]
	keep := 2
	if len(local) < keep {
		keep = len(local)
	}
	return local[:keep] + "***" + email[at:]
}

// ListResponse returns the paginated list shape used by every list endpoint
func ListResponse(re *core.RequestEvent, items any, p Pagination, totalItems int) error {
	return re.JSON(http.StatusOK, map[string]any{
		"items":      items,
		"page":       p.Page,
		"perPage":    p.PerPage,
		"totalItems": totalItems,
		"totalPages": p.TotalPages(totalItems),
	})
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and joins its words with dashes: "The Glass House" -> "the-glass-house"
func Slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// ApplyFields copies the listed keys present in input onto record
func ApplyFields(record *core.Record, input map[string]any, fields []string) {
	for _, field := range fields {
		if val, ok := input[field]; ok {
			record.Set(field, val)
		}
	}
}
