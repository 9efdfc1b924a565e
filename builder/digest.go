package builder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyDigest reports a conversion that produced no markdown at all.
var ErrEmptyDigest = errors.New("builder: digest produced no markdown")

// Digest converts built checklist HTML into a markdown summary. An
// empty result is an error rather than a silent blank digest.
func (b *Builder) Digest(html string) (string, error) {
	md, err := b.mdConverter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	md = strings.TrimSpace(md)
	if md == "" {
		return "", ErrEmptyDigest
	}
	return md, nil
}
