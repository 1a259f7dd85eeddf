package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateSessionID() string {
	return uuid.New().String()
}

// GenerateMerchantRef builds the reference sent to the payment provider.
// Format: BOOK-YYYYMMDD-HHMMSS-XXXXXXXX
func GenerateMerchantRef(now time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("BOOK-%s-%s-%s", now.Format("20060102"), now.Format("150405"), random)
}
