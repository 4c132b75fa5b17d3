package task

import (
	"fmt"
	"strings"
)

// Kind identifies the workflow stage a task belongs to.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindShot
	KindVideo
)

var allKinds = []Kind{KindText, KindShot, KindVideo}

// Kinds returns every known kind in routing order.
func Kinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindShot, KindVideo:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindShot:
		return "shot"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind converts a persisted kind label back into a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "text":
		return KindText, nil
	case "shot":
		return KindShot, nil
	case "video":
		return KindVideo, nil
	default:
		return 0, fmt.Errorf("unknown task kind %q", value)
	}
}
