package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"

	"wyze-camera-server/models"
)

// SignalingBundle is the WebRTC bootstrap data for one camera: the client id
// Wyze knows this install by, the (decoded) signaling endpoint, and the ICE
// server descriptors with normalized URLs.
type SignalingBundle struct {
	ClientID     string
	SignalingURL string
	Servers      []map[string]any
}

// turnHostPattern matches the synthetic Kinesis TURN hostnames that encode an
// IP as hyphened octets, e.g. turn:54-201-33-198.t-abc.kinesisvideo...:443.
var turnHostPattern = regexp.MustCompile(`^(turns?:)(\d+)-(\d+)-(\d+)-(\d+)\.t-[^:]+(:.*)$`)

// GetSignaling fetches WebRTC signaling data for a camera and normalizes the
// relay descriptors. Token expiry is recovered the same way as signed calls:
// one refresh, one retry.
func (s *WyzeService) GetSignaling(mac string) (*SignalingBundle, error) {
	data, err := s.withRefreshRetry(func(cred models.Credential) (json.RawMessage, error) {
		headers := s.basicHeaders()
		headers["content-type"] = "application/json"
		headers["authorization"] = "Bearer " + cred.AccessToken

		resp, err := s.client.R().
			SetHeaders(headers).
			Get(s.config.SignalingURL + "/signaling/device/" + mac + "?use_trickle=true")
		if err != nil {
			return nil, fmt.Errorf("signaling request failed: %w", err)
		}
		return parseAPIResponse(resp.Body())
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results struct {
			SignalingURL string           `json:"signalingUrl"`
			Servers      []map[string]any `json:"servers"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unexpected signaling response: %w", err)
	}

	normalizeServers(parsed.Results.Servers)

	signalingURL := parsed.Results.SignalingURL
	if decoded, err := url.PathUnescape(signalingURL); err == nil {
		signalingURL = decoded
	}

	cred, _ := s.store.Current()
	return &SignalingBundle{
		ClientID:     cred.PhoneID,
		SignalingURL: signalingURL,
		Servers:      parsed.Results.Servers,
	}, nil
}

// normalizeServers rewrites each relay descriptor in place: the legacy
// singular "url" field becomes "urls", and hyphened-octet hostnames are
// collapsed to the literal IP. Some resolvers fail on the synthetic
// hostnames, so embedding the IP sidesteps DNS entirely. Fields other than
// the URL pass through untouched.
func normalizeServers(servers []map[string]any) {
	for _, srv := range servers {
		if u, ok := srv["url"]; ok {
			srv["urls"] = u
			delete(srv, "url")
		}
		if u, ok := srv["urls"].(string); ok {
			srv["urls"] = normalizeTURNURL(u)
		}
	}
}

// normalizeTURNURL turns turn(s):A-B-C-D.t-xxx...:port into
// turn(s):A.B.C.D:port. URLs that do not match the synthetic hostname
// convention are returned unchanged.
func normalizeTURNURL(raw string) string {
	m := turnHostPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return m[1] + m[2] + "." + m[3] + "." + m[4] + "." + m[5] + m[6]
}
