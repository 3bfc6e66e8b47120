package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Analysis struct {
	ID        uuid.UUID
	Role      string
	FileKey   sql.NullString
	Score     int32
	Report    json.RawMessage
	CreatedAt time.Time
}
