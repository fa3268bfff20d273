// Package equipment parses, formats and allocates facility equipment identifiers
// (SET-nnnnnn samples, DOS-nnnnnn[.c] dosimeters, BOX-nnnnnn boxes).
package equipment

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the equipment family encoded in an id prefix.
type Kind string

const (
	KindNone      Kind = ""
	KindSample    Kind = "sample"
	KindDosimeter Kind = "dosimeter"
	KindBox       Kind = "box"
)

const (
	PrefixSample    = "SET"
	PrefixDosimeter = "DOS"
	PrefixBox       = "BOX"

	// NumDigits is the zero-padded width of the number part.
	NumDigits = 6
	MaxNumber = 999999
)

// Mode selects how strictly dosimeter child suffixes are matched.
type Mode int

const (
	// Any accepts root ids and dosimeter ids with up to five child levels.
	Any Mode = iota
	// Child requires dosimeter ids to carry at least one child level.
	Child
	// Root accepts only ids without child suffixes.
	Root
)

var (
	anyRe   = regexp.MustCompile(`^((SET|BOX)-\d{6}|DOS-\d{6}(\.(\d{1,3})){0,5})$`)
	childRe = regexp.MustCompile(`^((SET|BOX)-\d{6}|DOS-\d{6}(\.(\d{1,3})){1,5})$`)
	rootRe  = regexp.MustCompile(`^(SET|BOX|DOS)-\d{6}$`)
)

var prefixKinds = map[string]Kind{
	PrefixSample:    KindSample,
	PrefixDosimeter: KindDosimeter,
	PrefixBox:       KindBox,
}

// Type classifies id. It returns KindNone when id is not a valid equipment id in mode.
func Type(id string, mode Mode) Kind {
	re := anyRe
	switch mode {
	case Child:
		re = childRe
	case Root:
		re = rootRe
	}
	if !re.MatchString(id) {
		return KindNone
	}
	prefix, _, _ := strings.Cut(id, "-")
	return prefixKinds[prefix]
}

// Is reports whether id is a valid id of kind k (Any mode).
func Is(id string, k Kind) bool { return k != KindNone && Type(id, Any) == k }

// Format builds "<prefix>-<n zero padded to 6 digits>".
func Format(prefix string, n int) string {
	return fmt.Sprintf("%s-%0*d", prefix, NumDigits, n)
}

// Number extracts the root number of a valid id, ignoring any child suffix.
func Number(id string) (int, bool) {
	if Type(id, Any) == KindNone {
		return 0, false
	}
	root, _, _ := strings.Cut(id[4:], ".")
	n := 0
	for _, c := range root {
		n = n*10 + int(c-'0')
	}
	return n, true
}

// IsChildOf reports whether childID is "<parentID>.<1-3 digits>".
func IsChildOf(parentID, childID string) bool {
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(parentID) + `\.\d{1,3}$`)
	if err != nil {
		return false
	}
	return re.MatchString(childID)
}

var inforEAMPrefixes = map[Kind]string{
	KindSample:    "PXXISET001-CR",
	KindDosimeter: "PXXIDOS001-CR",
	KindBox:       "HCPWPDI002-CR",
}

var categoryDescs = map[Kind]string{
	KindSample:    "Sample Set",
	KindDosimeter: "IRRAD Dosimeters",
	KindBox:       "IRRAD Container",
}

// InforEAMID maps a facility id to the asset code used by inforEAM.
func InforEAMID(id string) (string, bool) {
	k := Type(id, Any)
	if k == KindNone {
		return "", false
	}
	_, code, _ := strings.Cut(id, "-")
	return inforEAMPrefixes[k] + code, true
}

// CategoryDesc is the inforEAM category of the equipment behind id.
func CategoryDesc(id string) string {
	return categoryDescs[Type(id, Any)]
}

// Material is the inforEAM material code for the equipment kind.
func Material(k Kind) string {
	if k == KindDosimeter {
		return "ALUMINIUM"
	}
	return "OTHER"
}
