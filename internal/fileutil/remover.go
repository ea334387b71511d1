package fileutil

import (
	"fmt"
	"os"
)

// Remover disposes of a rejected photo
type Remover interface {
	Remove(path string) error
	// Kind names the disposal for logs and prompts: trash, delete or move
	Kind() string
}

// TrashRemover sends files to the system trash
type TrashRemover struct{}

func (TrashRemover) Remove(path string) error { return MoveToTrash(path) }
func (TrashRemover) Kind() string             { return "trash" }

// PermanentRemover unlinks files
type PermanentRemover struct{}

func (PermanentRemover) Remove(path string) error { return os.Remove(path) }
func (PermanentRemover) Kind() string             { return "delete" }

// MoveRemover moves files into a holding folder
type MoveRemover struct {
	Dir string
}

func (r MoveRemover) Remove(path string) error {
	_, err := MoveFile(path, r.Dir)
	return err
}

func (r MoveRemover) Kind() string { return "move" }

// NewRemover picks a remover: a move when dir is set, else permanent
// deletion or the trash.
func NewRemover(permanent bool, dir string) (Remover, error) {
	switch {
	case dir != "" && permanent:
		return nil, fmt.Errorf("cannot both move and permanently delete")
	case dir != "":
		return MoveRemover{Dir: dir}, nil
	case permanent:
		return PermanentRemover{}, nil
	default:
		return TrashRemover{}, nil
	}
}
