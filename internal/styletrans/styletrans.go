// Package styletrans rewrites style fragments between style-language
// versions and renames their leading layer selector.
package styletrans

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vk/grainstore/internal/errs"
	"golang.org/x/mod/semver"
)

// rule rewrites style text written for a version older than since.
type rule struct {
	since string
	name  string
	apply func(string) string
}

var markerTypeRe = regexp.MustCompile(`marker-type\s*:\s*(arrow|ellipse)\b`)

// defaultRules are applied in order when a style crosses their version.
var defaultRules = []rule{
	{
		since: "v2.1.0",
		name:  "marker-type to marker-file",
		apply: func(s string) string {
			return markerTypeRe.ReplaceAllString(s, "marker-file: url(shape://$1)")
		},
	},
}

// Transformer is the default style version transformer.
type Transformer struct {
	rules []rule
}

// New returns a Transformer with the built-in rewrite rules.
func New() *Transformer {
	return &Transformer{rules: defaultRules}
}

// Transform rewrites style from the from version to the to version. The text
// is checked for balanced blocks first; a malformed fragment is a caller
// error and is reported as an errs.TransformError.
func (t *Transformer) Transform(style, from, to string) (string, error) {
	fromV, err := canonical(from)
	if err != nil {
		return "", &errs.TransformError{Index: -1, From: from, To: to, Message: err.Error()}
	}
	toV, err := canonical(to)
	if err != nil {
		return "", &errs.TransformError{Index: -1, From: from, To: to, Message: err.Error()}
	}
	if semver.Compare(fromV, toV) > 0 {
		return "", &errs.TransformError{
			Index:   -1,
			From:    from,
			To:      to,
			Message: fmt.Sprintf("cannot rewrite style from %s down to %s", from, to),
		}
	}
	if err := checkSyntax(style); err != nil {
		return "", &errs.TransformError{Index: -1, From: from, To: to, Message: err.Error()}
	}

	for _, r := range t.rules {
		if semver.Compare(fromV, r.since) < 0 && semver.Compare(toV, r.since) >= 0 {
			style = r.apply(style)
		}
	}
	return style, nil
}

// canonical turns "2.1" or "v2.1.0" into a semver string.
func canonical(version string) (string, error) {
	v := strings.TrimSpace(version)
	if v == "" {
		return "", fmt.Errorf("missing style version")
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid style version %q", version)
	}
	return semver.Canonical(v), nil
}
