// Package clipboard snapshots and restores the system clipboard so text can
// be pasted through it without losing what the user had copied.
package clipboard

// Entry is one representation of a clipboard item.
type Entry struct {
	Type string
	Data []byte
}

// Item is one clipboard item with all of its representations, in the order
// the pasteboard reported them.
type Item []Entry

// Snapshot is the full clipboard contents.
type Snapshot []Item

// Text returns the first plain-text representation, if any.
func (s Snapshot) Text() (string, bool) {
	for _, item := range s {
		for _, e := range item {
			if e.Type == TypeText {
				return string(e.Data), true
			}
		}
	}
	return "", false
}

// Equal reports whether two snapshots hold the same items byte for byte.
func (s Snapshot) Equal(o Snapshot) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if len(s[i]) != len(o[i]) {
			return false
		}
		for j := range s[i] {
			if s[i][j].Type != o[i][j].Type || string(s[i][j].Data) != string(o[i][j].Data) {
				return false
			}
		}
	}
	return true
}

// Board is a system clipboard.
type Board interface {
	// Snapshot copies every item and type currently on the clipboard.
	Snapshot() (Snapshot, error)
	// Restore replaces the clipboard with s.
	Restore(s Snapshot) error
	// WriteText replaces the clipboard with a single text item.
	WriteText(text string) error
}

// New returns the Board for this platform.
func New() Board { return newSystem() }

// ReadText returns the plain text on b.
func ReadText(b Board) (string, error) {
	s, err := b.Snapshot()
	if err != nil {
		return "", err
	}
	text, _ := s.Text()
	return text, nil
}
