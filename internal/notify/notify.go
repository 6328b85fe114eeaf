// Package notify provides cross-platform desktop notifications for watch
// mode. It uses github.com/gen2brain/beeep.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/shopstack/shopsync/internal/logging"
)

const appTitle = "Shopsync"

// Notifier handles desktop notifications. Notification failures are logged
// and swallowed; a missing notification daemon never fails an upload.
type Notifier struct {
	log     *logging.Logger
	mu      sync.RWMutex
	enabled bool
}

// NewNotifier creates a notifier.
func NewNotifier(log *logging.Logger, enabled bool) *Notifier {
	return &Notifier{log: log, enabled: enabled}
}

// SetEnabled toggles notifications at runtime.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// UploadComplete notifies that a watched file uploaded successfully.
func (n *Notifier) UploadComplete(fileName string) {
	n.send(fmt.Sprintf("Uploaded %s", fileName))
}

// UploadFailed notifies that a watched file failed to upload.
func (n *Notifier) UploadFailed(fileName string, err error) {
	n.send(fmt.Sprintf("Upload of %s failed: %v", fileName, err))
}

func (n *Notifier) send(message string) {
	n.mu.RLock()
	enabled := n.enabled
	n.mu.RUnlock()
	if !enabled {
		return
	}

	if err := beeep.Notify(appTitle, message, ""); err != nil && n.log != nil {
		n.log.Debugf("Notification failed: %v", err)
	}
}
