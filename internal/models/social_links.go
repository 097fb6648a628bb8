package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SocialLinks maps a network name to a profile URL. It is stored as a JSON
// document in a text column.
type SocialLinks map[string]string

func (s SocialLinks) Value() (driver.Value, error) {
	if s == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(s))
	return string(b), err
}

func (s *SocialLinks) Scan(input any) error {
	var raw []byte
	switch v := input.(type) {
	case nil:
		*s = SocialLinks{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("social links: unsupported type %T", input)
	}
	if len(raw) == 0 {
		*s = SocialLinks{}
		return nil
	}
	links := map[string]string{}
	if err := json.Unmarshal(raw, &links); err != nil {
		// Rows written by older clients may hold free text.
		*s = SocialLinks{}
		return nil
	}
	*s = links
	return nil
}

func (SocialLinks) GormDataType() string {
	return "text"
}
