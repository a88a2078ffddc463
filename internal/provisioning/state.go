package provisioning

import (
	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Images by name, and the names of those uploaded by this run.
	Images        map[string]*cloud.Image
	CreatedImages []string

	Networks map[string]*cloud.Network
	Keypairs map[string]*KeypairRecord

	// Instances by name, including instances whose creation failed after
	// the create call so that cleanup can find them.
	Instances map[string]*instance.Handle
}

// KeypairRecord is a keypair together with its local key files.
type KeypairRecord struct {
	Keypair        *cloud.Keypair
	PublicKeyPath  string
	PrivateKeyPath string

	// Created is set when the keypair was registered by this run, Generated
	// when its key files were written by this run.
	Created   bool
	Generated bool
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{
		Images:    make(map[string]*cloud.Image),
		Networks:  make(map[string]*cloud.Network),
		Keypairs:  make(map[string]*KeypairRecord),
		Instances: make(map[string]*instance.Handle),
	}
}

// Instance returns the handle of the named instance.
func (s *State) Instance(name string) (*instance.Handle, bool) {
	h, ok := s.Instances[name]
	return h, ok && h != nil
}
