package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Credential is the authenticated user's identity plus the token used to
// authorize assistant calls. It is replaced wholesale on every transition,
// never mutated field by field, so concurrent readers cannot observe a
// partially-updated value.
type Credential struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Company        string `json:"company"`
	AssistantToken string `json:"assistant_token"`
	AccessToken    string `json:"access_token,omitempty"`
}

// credentialFileName is the single well-known storage key for the persisted
// session.
const credentialFileName = "credential.json"

// StorageError is a persisted-session read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("credential storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// loadCredential reads the stored credential. A missing file or a file that
// does not parse means "no session", not an error.
func loadCredential(dir string) *Credential {
	data, err := os.ReadFile(filepath.Join(dir, credentialFileName))
	if err != nil {
		return nil
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil
	}
	if cred.Email == "" || cred.AssistantToken == "" {
		return nil
	}
	return &cred
}

// saveCredential persists the credential under the well-known key.
func saveCredential(dir string, cred *Credential) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return &StorageError{Op: "write", Err: err}
	}

	if err := os.WriteFile(filepath.Join(dir, credentialFileName), data, 0600); err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}

// removeCredential deletes the stored credential.
func removeCredential(dir string) error {
	err := os.Remove(filepath.Join(dir, credentialFileName))
	if err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove", Err: err}
	}
	return nil
}
