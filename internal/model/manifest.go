package model

// Manifest is the file-defined portion of a batch: the file list plus the
// run policy, optionally pinned to a stored profile.
type Manifest struct {
	Profile   string
	RemoteDir string
	Files     []string
	Policy    Policy
}
