package props

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch is the sentinel for assignment/schema key-set mismatch.
// Use errors.Is; the concrete *MismatchError carries the two key sets.
var ErrSchemaMismatch = errors.New("props: assignment does not match schema")

// MismatchError reports an assignment whose key set differs from the
// registry's declared schema. Got and Want are sorted.
type MismatchError struct {
	Got  []string
	Want []string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("props: wrong properties: [%s] is not [%s]",
		strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

func (e *MismatchError) Is(target error) bool { return target == ErrSchemaMismatch }
