package services

import (
	"sync"
	"time"

	"wyze-camera-server/models"
	"wyze-camera-server/utils"
)

// cacheTTL bounds how stale the cached camera list may get. Thumbnail URLs
// inside the entries are signed and short-lived, so the window stays small.
const cacheTTL = 120 * time.Second

// CameraCache memoizes the normalized camera list. The mutex is held across
// the vendor fetch, so concurrent List callers that find the cache expired
// wait for a single refresh instead of each issuing their own.
type CameraCache struct {
	wyze *WyzeService

	mu        sync.Mutex
	cameras   []models.Camera
	fetchedAt time.Time
	ttl       time.Duration
}

func NewCameraCache(wyze *WyzeService) *CameraCache {
	return &CameraCache{wyze: wyze, ttl: cacheTTL}
}

// List returns the cached cameras, refreshing from the vendor when the cache
// is empty or older than the TTL. Without a credential it returns an empty
// list rather than an error. A failed refresh propagates and leaves the
// previous entries and timestamp untouched, so the next call retries instead
// of silently serving stale data.
func (c *CameraCache) List() ([]models.Camera, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.wyze.Authenticated() {
		return []models.Camera{}, nil
	}
	if len(c.cameras) > 0 && time.Since(c.fetchedAt) < c.ttl {
		return c.cameras, nil
	}

	devices, err := c.wyze.GetObjectList()
	if err != nil {
		return nil, err
	}

	cameras := make([]models.Camera, 0, len(devices))
	for _, dev := range devices {
		if dev.ProductType != "Camera" {
			continue
		}
		if dev.Mac == "" || dev.ProductModel == "" {
			continue
		}
		cameras = append(cameras, normalizeDevice(dev))
	}

	c.cameras = cameras
	c.fetchedAt = time.Now()
	return cameras, nil
}

// Find resolves a camera by its name URI. Lookup order follows the cached
// list; when two cameras collapse to the same URI the first one wins.
func (c *CameraCache) Find(nameURI string) (models.Camera, error) {
	cameras, err := c.List()
	if err != nil {
		return models.Camera{}, err
	}
	for _, cam := range cameras {
		if cam.NameURI == nameURI {
			return cam, nil
		}
	}
	return models.Camera{}, models.ErrCameraNotFound
}

// Invalidate forces the next List to refresh regardless of age. The entries
// stay readable via Count until then.
func (c *CameraCache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

// Count reports the number of cached cameras without triggering a fetch.
func (c *CameraCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cameras)
}

func normalizeDevice(dev vendorDevice) models.Camera {
	nickname := dev.Nickname
	if nickname == "" {
		nickname = dev.Mac
	}
	return models.Camera{
		Mac:         dev.Mac,
		Nickname:    nickname,
		NameURI:     utils.NameURI(nickname, dev.Mac),
		Model:       dev.ProductModel,
		ModelName:   models.ModelLabel(dev.ProductModel),
		FirmwareVer: dev.FirmwareVer,
		IP:          dev.DeviceParams.IP,
		Thumbnail:   dev.DeviceParams.Thumbnails.URL,
		IsPan:       models.IsPanModel(dev.ProductModel),
		Is2K:        models.Is2KModel(dev.ProductModel),
		Online:      dev.ConnState == 1,
	}
}
