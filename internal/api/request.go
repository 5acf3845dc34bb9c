package api

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"device-allocation-backend/internal/mw"
)

const dateLayout = "2006-01-02"

// Timestamp accepts RFC 3339 timestamps and plain dates in JSON bodies.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		t.Time = ts.UTC()
		return nil
	}
	ts, err := time.Parse(dateLayout, raw)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "string " + raw, Type: reflect.TypeOf(time.Time{})}
	}
	t.Time = ts.UTC()
	return nil
}

// ptr returns nil for a missing or empty timestamp.
func (t *Timestamp) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// pathID parses the :id path parameter, answering 400 when it is malformed.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		invalidField(c, "id", "must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional UUID query parameter.
func queryID(c *gin.Context, key string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		invalidField(c, key, "must be a UUID")
		return nil, false
	}
	return &id, true
}

// optionalID parses an optional UUID from a request body.
func optionalID(raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// actor names the caller for audit columns: the explicit values from the
// body win, then the bearer token.
func actor(c *gin.Context, by, role string) (string, string) {
	claims, ok := mw.Claims(c)
	if !ok {
		return by, role
	}
	if by == "" {
		by = claims.Email
	}
	if role == "" {
		role = string(claims.Role)
	}
	return by, role
}
