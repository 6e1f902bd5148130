// internal/types/ids.go
package types

import "github.com/google/uuid"

type RecordID string

func NewRecordID() RecordID {
	return RecordID(uuid.New().String())
}
