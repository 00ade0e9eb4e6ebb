package models

import "errors"

// ErrCameraNotFound is returned when no cached camera matches a name URI.
var ErrCameraNotFound = errors.New("camera not found")

// Camera is the normalized view of a Wyze device served by this API.
// JSON keys are the public contract of the proxy, so renaming a field
// here breaks every consumer.
type Camera struct {
	Mac         string `json:"mac"`
	Nickname    string `json:"nickname"`
	NameURI     string `json:"name_uri"`
	Model       string `json:"model"`
	ModelName   string `json:"model_name"`
	FirmwareVer string `json:"firmware_ver"`
	IP          string `json:"ip"`
	Thumbnail   string `json:"thumbnail"`
	IsPan       bool   `json:"is_pan"`
	Is2K        bool   `json:"is_2k"`
	Online      bool   `json:"online"`
}
