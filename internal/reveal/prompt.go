package reveal

import (
	"github.com/google/uuid"

	"github.com/tonimelisma/drivevault/internal/pathkey"
)

// PromptState tracks where a passphrase prompt is in its lifecycle.
type PromptState int

const (
	// PromptPending means the prompt is open and waiting for a passphrase.
	PromptPending PromptState = iota

	// PromptSubmitting means a reveal request is in flight for the prompt.
	PromptSubmitting
)

// PromptRequest asks the coordinator to open a passphrase prompt.
type PromptRequest struct {
	// Path is the folder to unlock. Normalized by the coordinator.
	Path string

	// Label overrides the derived display name when non-empty.
	Label string

	// OnSuccess runs with the issued token after a successful reveal
	// submitted through this prompt. Optional.
	OnSuccess func(token string)
}

// Prompt is the single active passphrase prompt for a namespace. At most
// one exists per namespace at any time; opening a new one replaces the
// old outright, with no queueing.
type Prompt struct {
	ID          string
	Namespace   string
	Path        string
	DisplayName string
	State       PromptState

	// LastError is the human-readable message from the most recent failed
	// submission, shown on the still-open prompt for retry.
	LastError string

	onSuccess func(token string)
}

// newPrompt builds a prompt with a derived display name.
func newPrompt(namespace string, req PromptRequest) *Prompt {
	normalized := pathkey.Normalize(req.Path)

	return &Prompt{
		ID:          uuid.NewString(),
		Namespace:   namespace,
		Path:        normalized,
		DisplayName: pathkey.DisplayName(normalized, req.Label),
		State:       PromptPending,
		onSuccess:   req.OnSuccess,
	}
}

// snapshot returns a copy safe to hand to callers. The success callback
// is not copied — it belongs to the coordinator.
func (p *Prompt) snapshot() *Prompt {
	copied := *p
	copied.onSuccess = nil

	return &copied
}
