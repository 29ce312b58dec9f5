package rom

import "errors"

// Error kinds of the extractor. Load time errors abort a run, all others are
// reported per record and counted.
var (
	ErrBadImage           = errors.New("BadImage")
	ErrBadPointer         = errors.New("BadPointer")
	ErrBadLayout          = errors.New("BadLayout")
	ErrUnterminatedString = errors.New("UnterminatedString")
	ErrBadChipIndex       = errors.New("BadChipIndex")
)

var kinds = []error{
	ErrBadImage,
	ErrBadPointer,
	ErrBadLayout,
	ErrUnterminatedString,
	ErrBadChipIndex,
}

// Kind returns the name of the error kind wrapped by err, or "Error" if err
// does not wrap any of the known kinds.
func Kind(err error) string {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return "Error"
}
