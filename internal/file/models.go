package file

import (
	"encoding/json"
	"fmt"
	"time"
)

// legacyTimeLayout is the zone-less layout written by older catalog documents.
const legacyTimeLayout = "2006-01-02T15:04:05"

// Record is the catalog entry describing one live object.
type Record struct {
	Name       string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"uploadTime"`
	Code       string    `json:"code"`
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as the legacy zone-less form.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name       string `json:"filename"`
		Size       int64  `json:"size"`
		UploadTime string `json:"uploadTime"`
		Code       string `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts, err := parseUploadTime(raw.UploadTime)
	if err != nil {
		return err
	}

	*r = Record{Name: raw.Name, Size: raw.Size, UploadTime: ts, Code: raw.Code}
	return nil
}

func parseUploadTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.ParseInLocation(legacyTimeLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse upload time %q: %w", value, err)
	}
	return ts.UTC(), nil
}

// ObjectInfo describes a stored payload.
type ObjectInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Category groups objects for previewing.
type Category string

const (
	CategoryImage Category = "image"
	CategoryVideo Category = "video"
	CategoryOther Category = "other"
)

// Preview is the result of a preview-by-code lookup.
type Preview struct {
	Name     string   `json:"filename"`
	Category Category `json:"type"`
	Size     int64    `json:"size"`
	URL      string   `json:"url"`
}
