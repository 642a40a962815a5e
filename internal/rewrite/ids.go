package rewrite

import "github.com/google/uuid"

// newChangeID generates the change_id stamped onto every detected
// mutation, grounded on the teacher's own use of uuid.New().String() for
// session/message identifiers.
func newChangeID() string {
	return uuid.New().String()
}
