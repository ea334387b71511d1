package fileutil

import "fmt"

// Mode selects whether Transfer copies or moves
type Mode string

const (
	ModeCopy Mode = "copy"
	ModeMove Mode = "move"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCopy, ModeMove:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown transfer mode %q (want copy or move)", s)
	}
}

// Transferred records where one file ended up
type Transferred struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TransferFailure records a file that could not be transferred
type TransferFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// TransferResult is the outcome of a Transfer call
type TransferResult struct {
	Done   []Transferred
	Failed []TransferFailure
}

// Transfer copies or moves every path into destDir. Name clashes get a
// " (n)" suffix. A failure on one file does not stop the others.
func Transfer(paths []string, destDir string, mode Mode) TransferResult {
	op := CopyFile
	if mode == ModeMove {
		op = MoveFile
	}

	var res TransferResult
	for _, p := range paths {
		dest, err := op(p, destDir)
		if err != nil {
			res.Failed = append(res.Failed, TransferFailure{Path: p, Err: err})
			continue
		}
		res.Done = append(res.Done, Transferred{From: p, To: dest})
	}
	return res
}
