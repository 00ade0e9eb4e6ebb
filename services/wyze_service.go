package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"wyze-camera-server/config"
	"wyze-camera-server/models"
	"wyze-camera-server/store"
	"wyze-camera-server/utils"
)

const (
	appVersion = "3.1.0.6"
	iosVersion = "17.1.1"
	appName    = "com.hualai.WyzeCam"

	// Public key baked into the Wyze iOS app, used only for the legacy
	// login path when no personal API key is configured.
	legacyAPIKey = "WMXHYf79Nr5gIlt3r0r7p9Tcw5bvs6BB4U8O8nGJ"

	apiTimeout       = 15 * time.Second
	thumbnailTimeout = 5 * time.Second
)

var (
	iosUserAgent    = fmt.Sprintf("Wyze/%s (iPhone; iOS %s; Scale/3.00)", appVersion, iosVersion)
	serverUserAgent = "wyze-camera-server/1.0"
)

// signingPair is the fixed sc/sv identifier pair each endpoint category
// must embed in its payload. The values are opaque vendor constants.
type signingPair struct {
	SC string
	SV string
}

var signingPairs = map[string]signingPair{
	"default":         {SC: "9f275790cab94a72bd206c8876429f3c", SV: "e1fe392906d54888a9b99b88de4162d7"},
	"run_action":      {SC: "01dd431d098546f9baf5233724fa2ee2", SV: "2c0edc06d4c5465b8c55af207144f0d9"},
	"get_device_Info": {SC: "01dd431d098546f9baf5233724fa2ee2", SV: "0bc2c3bedf6c4be688754c9ad42bbf2e"},
	"set_device_Info": {SC: "01dd431d098546f9baf5233724fa2ee2", SV: "e8e1db44128f4e31a2047a8f5f80b2bd"},
}

// WyzeService performs authenticated calls against the Wyze cloud API,
// hiding the token-refresh handshake from callers. Token refresh is
// single-flight: concurrent callers that hit an expired token share one
// refresh round trip.
type WyzeService struct {
	config    config.WyzeConfig
	store     *store.CredentialStore
	client    *resty.Client
	thumbs    *resty.Client
	refreshMu sync.Mutex
}

func NewWyzeService(cfg config.WyzeConfig, credStore *store.CredentialStore) *WyzeService {
	return &WyzeService{
		config: cfg,
		store:  credStore,
		client: resty.New().SetTimeout(apiTimeout),
		thumbs: resty.New().SetTimeout(thumbnailTimeout),
	}
}

// Authenticated reports whether a usable credential is loaded.
func (s *WyzeService) Authenticated() bool {
	cred, ok := s.store.Current()
	return ok && cred.Valid()
}

// TokenExpiresAt reports when the current access token expires, when known.
func (s *WyzeService) TokenExpiresAt() (time.Time, bool) {
	cred, ok := s.store.Current()
	if !ok {
		return time.Time{}, false
	}
	return cred.TokenExpiresAt()
}

// vendorDevice is the raw device entry from get_object_list. Only the
// fields this proxy consumes are mapped; everything else is dropped.
type vendorDevice struct {
	Mac          string `json:"mac"`
	Nickname     string `json:"nickname"`
	ProductType  string `json:"product_type"`
	ProductModel string `json:"product_model"`
	FirmwareVer  string `json:"firmware_ver"`
	ConnState    int    `json:"device_conn_state"`
	DeviceParams struct {
		IP         string `json:"ip"`
		Thumbnails struct {
			URL string `json:"thumbnails_url"`
		} `json:"camera_thumbnails"`
	} `json:"device_params"`
}

// Login exchanges email + hashed password + a freshly generated phone id for
// an initial credential and persists it. The phone id sticks for the life of
// the token file even across refreshes.
func (s *WyzeService) Login() (models.Credential, error) {
	phoneID := uuid.NewString()

	body := map[string]string{
		"email":    strings.TrimSpace(s.config.Email),
		"password": utils.HashPassword(s.config.Password),
	}

	resp, err := s.client.R().
		SetHeaders(s.loginHeaders(phoneID)).
		SetBody(body).
		Post(s.config.AuthURL + "/api/user/login")
	if err != nil {
		return models.Credential{}, fmt.Errorf("login request failed: %w", err)
	}

	data, err := parseAPIResponse(resp.Body())
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			err = &APIError{Code: tokenExpiredCode, Message: "token expired during login"}
		}
		return models.Credential{}, fmt.Errorf("login rejected: %w", err)
	}

	var cred models.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return models.Credential{}, fmt.Errorf("unexpected login response: %w", err)
	}
	cred.PhoneID = phoneID
	if !cred.Valid() {
		return models.Credential{}, errors.New("login response carried no token pair (MFA enabled without an API key?)")
	}

	if err := s.store.Save(cred); err != nil {
		log.Printf("[Wyze] Failed to persist tokens: %v", err)
	}
	return cred, nil
}

// GetObjectList fetches the raw device list for the account.
func (s *WyzeService) GetObjectList() ([]vendorDevice, error) {
	data, err := s.execute("default", "/v2/home_page/get_object_list", nil)
	if err != nil {
		return nil, err
	}
	var list struct {
		DeviceList []vendorDevice `json:"device_list"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("unexpected device list response: %w", err)
	}
	return list.DeviceList, nil
}

// RunAction triggers a device action such as power_on or restart.
func (s *WyzeService) RunAction(mac, model, action string) (json.RawMessage, error) {
	return s.execute("run_action", "/v2/auto/run_action", map[string]any{
		"action_params": map[string]any{},
		"action_key":    action,
		"instance_id":   mac,
		"provider_key":  model,
		"custom_string": "",
	})
}

// SetProperty writes a device property (status light, night vision, ...).
func (s *WyzeService) SetProperty(mac, model, pid, value string) (json.RawMessage, error) {
	return s.execute("set_device_Info", "/v2/device/set_property", map[string]any{
		"pid":          strings.ToUpper(pid),
		"pvalue":       value,
		"device_mac":   mac,
		"device_model": model,
	})
}

// GetDeviceInfo fetches the full vendor property dump for a device.
func (s *WyzeService) GetDeviceInfo(mac, model string) (json.RawMessage, error) {
	return s.execute("get_device_Info", "/v2/device/get_device_Info", map[string]any{
		"device_mac":   mac,
		"device_model": model,
	})
}

// FetchThumbnail downloads a signed thumbnail URL and returns the image
// bytes plus content type. The signed URLs expire quickly, so callers retry
// through a cache refresh on failure.
func (s *WyzeService) FetchThumbnail(url string) ([]byte, string, error) {
	resp, err := s.thumbs.R().Get(url)
	if err != nil {
		return nil, "", fmt.Errorf("thumbnail fetch failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, "", fmt.Errorf("thumbnail fetch returned status %d", resp.StatusCode())
	}
	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return resp.Body(), contentType, nil
}

// execute performs one signed call with the refresh-then-retry contract:
// a token-expired response triggers exactly one refresh and one retried
// call; a second expiry (or any other failure) propagates. This is the
// single place that rule lives.
func (s *WyzeService) execute(endpoint, path string, extra map[string]any) (json.RawMessage, error) {
	return s.withRefreshRetry(func(cred models.Credential) (json.RawMessage, error) {
		return s.post(endpoint, path, cred, extra)
	})
}

func (s *WyzeService) withRefreshRetry(call func(models.Credential) (json.RawMessage, error)) (json.RawMessage, error) {
	cred, ok := s.store.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	data, err := call(cred)
	if !errors.Is(err, ErrTokenExpired) {
		return data, err
	}

	if err := s.refreshAccessToken(cred.AccessToken); err != nil {
		return nil, err
	}
	cred, ok = s.store.Current()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	data, err = call(cred)
	if errors.Is(err, ErrTokenExpired) {
		return nil, &APIError{Code: tokenExpiredCode, Message: "access token still expired after refresh"}
	}
	return data, err
}

// post sends one signed request and parses the response envelope.
func (s *WyzeService) post(endpoint, path string, cred models.Credential, extra map[string]any) (json.RawMessage, error) {
	payload := s.signedPayload(endpoint, cred)
	for k, v := range extra {
		payload[k] = v
	}

	resp, err := s.client.R().
		SetHeaders(s.basicHeaders()).
		SetBody(payload).
		Post(s.config.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("wyze request %s failed: %w", path, err)
	}
	return parseAPIResponse(resp.Body())
}

// refreshAccessToken exchanges the refresh token for a new token pair.
// staleToken is the access token the caller just failed with: if the stored
// token already differs, another caller finished the refresh first and this
// one returns without a second vendor round trip.
func (s *WyzeService) refreshAccessToken(staleToken string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	cred, ok := s.store.Current()
	if !ok {
		return ErrNotAuthenticated
	}
	if cred.AccessToken != staleToken {
		return nil
	}

	payload := s.signedPayload("default", cred)
	payload["refresh_token"] = cred.RefreshToken

	resp, err := s.client.R().
		SetHeaders(s.basicHeaders()).
		SetBody(payload).
		Post(s.config.APIURL + "/user/refresh_token")
	if err != nil {
		return fmt.Errorf("token refresh request failed: %w", err)
	}

	data, err := parseAPIResponse(resp.Body())
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			err = &APIError{Code: tokenExpiredCode, Message: "refresh token rejected"}
		}
		return fmt.Errorf("token refresh failed: %w", err)
	}

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return fmt.Errorf("unexpected refresh response: %w", err)
	}

	if err := s.store.UpdateTokens(tokens.AccessToken, tokens.RefreshToken); err != nil {
		log.Printf("[Wyze] Failed to persist refreshed tokens: %v", err)
	}
	log.Printf("[Wyze] Access token refreshed")
	return nil
}

// signedPayload builds the common request body every signed endpoint
// expects: the endpoint's sc/sv pair, app identifiers, a millisecond
// timestamp, and the caller's access token and phone id.
func (s *WyzeService) signedPayload(endpoint string, cred models.Credential) map[string]any {
	pair, ok := signingPairs[endpoint]
	if !ok {
		pair = signingPairs["default"]
	}
	return map[string]any{
		"sc":                pair.SC,
		"sv":                pair.SV,
		"app_ver":           appName + "___" + appVersion,
		"app_version":       appVersion,
		"app_name":          appName,
		"phone_system_type": 1,
		"ts":                time.Now().UnixMilli(),
		"access_token":      cred.AccessToken,
		"phone_id":          cred.PhoneID,
	}
}

func (s *WyzeService) basicHeaders() map[string]string {
	return map[string]string{
		"user-agent": iosUserAgent,
		"appversion": appVersion,
		"env":        "prod",
	}
}

// loginHeaders picks the auth header set: a personal API key pair when
// configured, otherwise the legacy app key tied to the phone id.
func (s *WyzeService) loginHeaders(phoneID string) map[string]string {
	if s.config.KeyID != "" && s.config.APIKey != "" {
		return map[string]string{
			"apikey":     s.config.APIKey,
			"keyid":      s.config.KeyID,
			"user-agent": serverUserAgent,
		}
	}
	return map[string]string{
		"x-api-key":  legacyAPIKey,
		"phone-id":   phoneID,
		"user-agent": "wyze_ios_" + appVersion,
	}
}

// apiResponse is the Wyze response envelope. Depending on the endpoint the
// code arrives as a string or a number, under "code" or "errorCode"; the
// flexCode type absorbs that.
type apiResponse struct {
	Code        flexCode        `json:"code"`
	ErrorCode   flexCode        `json:"errorCode"`
	Msg         string          `json:"msg"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
}

type flexCode string

func (f *flexCode) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexCode(n.String())
	return nil
}

// parseAPIResponse classifies a vendor response body: success returns the
// data payload (or the whole body for endpoints without a data wrapper),
// the expiry sentinel returns ErrTokenExpired, anything else an APIError.
func parseAPIResponse(body []byte) (json.RawMessage, error) {
	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("unparseable wyze response: %w", err)
	}

	code := string(r.Code)
	if code == "" {
		code = string(r.ErrorCode)
	}
	if code == "" {
		code = "0"
	}

	switch code {
	case "0", "1":
		if len(r.Data) > 0 && !bytes.Equal(r.Data, []byte("null")) {
			return r.Data, nil
		}
		return json.RawMessage(body), nil
	case tokenExpiredCode:
		return nil, ErrTokenExpired
	}

	msg := r.Msg
	if msg == "" {
		msg = r.Description
	}
	if msg == "" {
		msg = code
	}
	return nil, &APIError{Code: code, Message: msg}
}
