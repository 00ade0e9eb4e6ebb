package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"wyze-camera-server/models"
	"wyze-camera-server/services"
)

type CameraHandler struct {
	cache *services.CameraCache
	wyze  *services.WyzeService
}

func NewCameraHandler(cache *services.CameraCache, wyze *services.WyzeService) *CameraHandler {
	return &CameraHandler{
		cache: cache,
		wyze:  wyze,
	}
}

// propertyIDs maps friendly setting names to the vendor property ids they
// write. The value comes from the "value" query parameter, defaulting to "1".
var propertyIDs = map[string]string{
	"status_light":     "P1",
	"night_vision":     "P2",
	"motion_detection": "P13",
	"motion_tracking":  "P27",
}

// actionKeys maps friendly verbs to vendor action keys. Unknown actions pass
// through verbatim so new vendor actions work without a proxy release.
var actionKeys = map[string]string{
	"power_on":  "power_on",
	"power_off": "power_off",
	"turn_on":   "power_on",
	"turn_off":  "power_off",
	"restart":   "restart",
}

func (h *CameraHandler) GetCameras(c *gin.Context) {
	cameras, err := h.cache.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cameras)
}

func (h *CameraHandler) GetCamera(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, cam)
}

func (h *CameraHandler) GetCameraInfo(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}

	info, err := h.wyze.GetDeviceInfo(cam.Mac, cam.Model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", info)
}

func (h *CameraHandler) CameraAction(c *gin.Context) {
	cam, ok := h.findCamera(c)
	if !ok {
		return
	}
	action := c.Param("action")

	if pid, isProperty := propertyIDs[action]; isProperty {
		value := c.DefaultQuery("value", "1")
		result, err := h.wyze.SetProperty(cam.Mac, cam.Model, pid, value)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
		return
	}

	key, known := actionKeys[action]
	if !known {
		key = action
	}
	result, err := h.wyze.RunAction(cam.Mac, cam.Model, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "result": result})
}

func (h *CameraHandler) RefreshCameras(c *gin.Context) {
	h.cache.Invalidate()
	cameras, err := h.cache.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cameras)
}

// GetThumbnail proxies the signed thumbnail image. The signed URLs expire
// quickly, so a failed fetch forces one cache refresh for fresh URLs and
// retries once before giving up.
func (h *CameraHandler) GetThumbnail(c *gin.Context) {
	nameURI := c.Param("name_uri")

	cam, err := h.cache.Find(nameURI)
	if err != nil && !errors.Is(err, models.ErrCameraNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err != nil || cam.Thumbnail == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No thumbnail"})
		return
	}

	if body, contentType, err := h.wyze.FetchThumbnail(cam.Thumbnail); err == nil {
		c.Data(http.StatusOK, contentType, body)
		return
	}

	h.cache.Invalidate()
	if cameras, err := h.cache.List(); err == nil {
		for _, fresh := range cameras {
			if fresh.NameURI != nameURI || fresh.Thumbnail == "" {
				continue
			}
			if body, contentType, err := h.wyze.FetchThumbnail(fresh.Thumbnail); err == nil {
				c.Data(http.StatusOK, contentType, body)
				return
			}
			break
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Thumbnail unavailable"})
}

// findCamera resolves the name_uri path parameter, writing the error
// response itself so handlers can bail with a bare return.
func (h *CameraHandler) findCamera(c *gin.Context) (models.Camera, bool) {
	cam, err := h.cache.Find(c.Param("name_uri"))
	if err != nil {
		if errors.Is(err, models.ErrCameraNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return models.Camera{}, false
	}
	return cam, true
}
