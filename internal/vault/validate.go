package vault

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/veleda/skald/internal/apperr"
)

const forbiddenChars = `<>:"|?*\`

var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// ValidateName checks a single file or folder name. Failures come back
// as *apperr.ValidationError with a machine-readable kind; callers map
// them to user-facing messages.
func ValidateName(name string) error {
	return validation.Validate(name,
		validation.By(checkNonEmpty),
		validation.By(checkForbiddenChars),
		validation.By(checkReservedName),
		validation.By(checkDotSpaceEdge),
	)
}

// ValidatePath checks a '/'-separated relative path segment by segment
// and rejects anything that could escape the vault root.
func ValidatePath(rel string) error {
	if strings.TrimSpace(rel) == "" {
		return &apperr.ValidationError{Kind: apperr.ValidationEmpty, Value: rel}
	}
	if strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return &apperr.ValidationError{Kind: apperr.ValidationTraversal, Value: rel}
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." || seg == "." {
			return &apperr.ValidationError{Kind: apperr.ValidationTraversal, Value: rel}
		}
		if err := ValidateName(seg); err != nil {
			return err
		}
	}
	return nil
}

func checkNonEmpty(value interface{}) error {
	name, _ := value.(string)
	if strings.TrimSpace(name) == "" {
		return &apperr.ValidationError{Kind: apperr.ValidationEmpty, Value: name}
	}
	return nil
}

func checkForbiddenChars(value interface{}) error {
	name, _ := value.(string)
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(forbiddenChars, r) {
			return &apperr.ValidationError{Kind: apperr.ValidationForbiddenChar, Value: name}
		}
	}
	return nil
}

func checkReservedName(value interface{}) error {
	name, _ := value.(string)
	stem := strings.ToLower(name)
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if _, bad := reservedNames[stem]; bad {
		return &apperr.ValidationError{Kind: apperr.ValidationReservedName, Value: name}
	}
	return nil
}

func checkDotSpaceEdge(value interface{}) error {
	name, _ := value.(string)
	if name == "" {
		return nil
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, " ") ||
		strings.HasSuffix(name, ".") || strings.HasSuffix(name, " ") {
		return &apperr.ValidationError{Kind: apperr.ValidationDotSpaceEdge, Value: name}
	}
	return nil
}
