package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// newReferenceNumber builds a customer-facing booking code of the form
// BK-YYYYMMDD-XXXXX. The suffix comes from a fresh UUID, so collisions are
// rare; the unique index on reference_number catches the rest and the caller
// retries with a new code.
func newReferenceNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:5]
	return "BK-" + now.Format("20060102") + "-" + suffix
}
