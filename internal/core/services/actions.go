package services

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driving"
)

// Operating system identifiers.
const (
	osDarwin  = "darwin"
	osLinux   = "linux"
	osWindows = "windows"
)

// Ensure ViewerActionService implements the interface.
var _ driving.ViewerActionService = (*ViewerActionService)(nil)

// ViewerActionService opens report documents outside the terminal.
type ViewerActionService struct {
	open func(string) error
	copy func(string) error
}

// NewViewerActionService creates a viewer action service using the
// platform's default browser and clipboard.
func NewViewerActionService() *ViewerActionService {
	return &ViewerActionService{open: openURL, copy: copyToClipboard}
}

// Open shows a viewer's document in the default browser.
func (s *ViewerActionService) Open(_ context.Context, slot domain.ViewerSlot) error {
	if slot.Placeholder() {
		return fmt.Errorf("%w: no %s for this case", domain.ErrNotFound, slot.Title)
	}
	u, err := url.Parse(slot.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s is not a web address", domain.ErrInvalidInput, slot.URL)
	}
	return s.open(u.String())
}

// CopyToClipboard copies text, typically a document URL.
func (s *ViewerActionService) CopyToClipboard(_ context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: nothing to copy", domain.ErrInvalidInput)
	}
	return s.copy(text)
}

// openURL opens a URL using the system default handler.
func openURL(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case osDarwin:
		cmd = exec.Command("open", url)
	case osLinux:
		cmd = exec.Command("xdg-open", url)
	case osWindows:
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// copyToClipboard copies text to the system clipboard using OS-specific commands.
func copyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case osDarwin:
		cmd = exec.Command("pbcopy")
	case osLinux:
		// Try xclip first, fall back to xsel
		if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		} else if _, err := exec.LookPath("xsel"); err == nil {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		} else {
			return fmt.Errorf("no clipboard utility found (install xclip or xsel)")
		}
	case osWindows:
		cmd = exec.Command("cmd", "/c", "clip")
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
