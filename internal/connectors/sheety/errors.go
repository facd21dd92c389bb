package sheety

import (
	"fmt"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// RateLimitError reports a 429 from the proxy.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("sheety: rate limit exceeded, retry after %s", e.ResetAt.Format(time.RFC3339))
}

// Is reports whether target is domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool { return target == domain.ErrRateLimited }
