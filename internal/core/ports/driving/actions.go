package driving

import (
	"context"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// ViewerActionService opens report documents for external actors.
// This is used by TUI and CLI adapters.
type ViewerActionService interface {
	// Open shows a viewer's document in the default browser.
	Open(ctx context.Context, slot domain.ViewerSlot) error

	// CopyToClipboard copies text, typically a document URL.
	CopyToClipboard(ctx context.Context, text string) error
}
