package utility

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ToFloat converts a sampled value string to a float64, zero on failure.
func ToFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// CleanTag strips card-reader metadata some stations append to the id tag
// after an underscore, e.g. "04E5F2A1_CONTACTLESS" -> "04E5F2A1".
func CleanTag(idTag string) string {
	if i := strings.Index(idTag, "_"); i >= 0 {
		return idTag[:i]
	}
	return idTag
}

func NewUUID() string {
	return uuid.New().String()
}
