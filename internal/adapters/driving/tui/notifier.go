package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/r3form/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
)

// notifier turns tracker findings into program messages.
// Findings may be raised while the program is inside Update, so messages
// are queued and sent in order from a single goroutine.
type notifier struct {
	mu  sync.Mutex
	box *outbox
}

var _ driven.Notifier = (*notifier)(nil)

// attach replaces the destination. Pending messages for the previous
// destination are dropped. A nil send detaches.
func (n *notifier) attach(send func(tea.Msg)) {
	var next *outbox
	if send != nil {
		next = newOutbox(send)
	}

	n.mu.Lock()
	prev := n.box
	n.box = next
	n.mu.Unlock()

	if prev != nil {
		prev.close()
	}
}

func (n *notifier) post(msg tea.Msg) {
	n.mu.Lock()
	box := n.box
	n.mu.Unlock()
	if box == nil {
		return
	}
	box.push(msg)
}

// ShowExistingSubmission posts the found record.
func (n *notifier) ShowExistingSubmission(rec domain.SubmissionRecord) {
	n.post(messages.ExistingSubmission{Record: &rec})
}

// ClearExistingSubmission posts an empty finding.
func (n *notifier) ClearExistingSubmission() {
	n.post(messages.ExistingSubmission{})
}

// outbox is an unbounded FIFO drained by one goroutine.
type outbox struct {
	send func(tea.Msg)

	mu      sync.Mutex
	pending []tea.Msg

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func newOutbox(send func(tea.Msg)) *outbox {
	o := &outbox{
		send:    send,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) push(msg tea.Msg) {
	o.mu.Lock()
	o.pending = append(o.pending, msg)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *outbox) run() {
	defer close(o.stopped)
	for {
		select {
		case <-o.done:
			return
		case <-o.wake:
		}
		for {
			o.mu.Lock()
			if len(o.pending) == 0 {
				o.mu.Unlock()
				break
			}
			msg := o.pending[0]
			o.pending[0] = nil
			o.pending = o.pending[1:]
			o.mu.Unlock()

			select {
			case <-o.done:
				return
			default:
			}
			o.send(msg)
		}
	}
}

// close stops the goroutine and waits for it. A send in flight finishes
// first.
func (o *outbox) close() {
	close(o.done)
	<-o.stopped
}
