/*-------------------------------------------------------------------------
 *
 * jsonb.go
 *    JSONB column types for CaseTrace
 *
 * Provides database/sql driver support for JSONB maps and the typed
 * JSONB collections (citations, thinking traces) used by the pipeline.
 *
 * Copyright (c) 2024-2026, casetrace, Inc. <admin@casetrace.io>
 *
 * IDENTIFICATION
 *    CaseTrace/internal/db/jsonb.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

/* JSONBMap is a map stored in a JSONB column */
type JSONBMap map[string]interface{}

/* Value implements driver.Valuer */
func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

/* Scan implements sql.Scanner */
func (m *JSONBMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("jsonb scan failed: unsupported_source_type=%T", src)
	}
}

/* FromMap converts a plain map to a JSONBMap */
func FromMap(m map[string]interface{}) JSONBMap {
	if m == nil {
		return nil
	}
	return JSONBMap(m)
}

/* StructToMap converts a struct to a JSONBMap via its JSON encoding */
func StructToMap(v interface{}) (JSONBMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsonb struct conversion failed: type=%T, error=%w", v, err)
	}
	var m JSONBMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("jsonb struct conversion failed: type=%T, error=%w", v, err)
	}
	return m, nil
}

/* ToMap converts a JSONBMap to a plain map */
func (m JSONBMap) ToMap() map[string]interface{} {
	if m == nil {
		return make(map[string]interface{})
	}
	return map[string]interface{}(m)
}

/* Citation is one verbatim, locatable excerpt supporting a finding */
type Citation struct {
	FileID  string `json:"file_id"`
	Locator string `json:"locator"`
	Excerpt string `json:"excerpt"`
}

/* CitationList is a citation slice stored in a JSONB column */
type CitationList []Citation

/* Value implements driver.Valuer */
func (c CitationList) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal([]Citation{})
	}
	return json.Marshal(c)
}

/* Scan implements sql.Scanner */
func (c *CitationList) Scan(src interface{}) error {
	if src == nil {
		*c = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("citation list scan failed: unsupported_source_type=%T", src)
	}
}

/* ThinkingTrace is one intermediate reasoning segment kept for audit */
type ThinkingTrace struct {
	Agent     string    `json:"agent"`
	Thought   string    `json:"thought"`
	Timestamp time.Time `json:"timestamp"`
}

/* TraceList is a thinking trace slice stored in a JSONB column */
type TraceList []ThinkingTrace

/* Value implements driver.Valuer */
func (t TraceList) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal([]ThinkingTrace{})
	}
	return json.Marshal(t)
}

/* Scan implements sql.Scanner */
func (t *TraceList) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("trace list scan failed: unsupported_source_type=%T", src)
	}
}
