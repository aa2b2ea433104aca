package revealapi

// RevealRequest exchanges a folder passphrase for a session token.
// Path is the normalized folder path, or "/" for the root.
type RevealRequest struct {
	Path       string `json:"path"`
	Passphrase string `json:"passphrase"`
}

// RevealResponse is the server's answer to a successful reveal. The field
// names mirror the server's wire format. ExpiresAt is unix seconds; zero
// means the server declined to state an expiry and the client applies its
// default TTL. HiddenFolderPath is the server's canonical path for the
// folder, which may differ from the requested path.
type RevealResponse struct {
	SessionToken     string `json:"SessionToken"`
	ExpiresAt        int64  `json:"ExpiresAt"`
	HiddenFolderPath string `json:"HiddenFolderPath"`
}

// HideRequest re-locks a folder behind its passphrase.
type HideRequest struct {
	Path       string `json:"path"`
	Passphrase string `json:"passphrase"`
}

// Entry is one row of a directory listing.
type Entry struct {
	Name     string `json:"name"`
	Folder   bool   `json:"folder"`
	Hidden   bool   `json:"hidden"`
	Size     int64  `json:"size"`
	Modified int64  `json:"modified"`
}

// errorBody is the server's error payload shape.
type errorBody struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
