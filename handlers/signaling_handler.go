package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"wyze-camera-server/models"
	"wyze-camera-server/services"
)

const signalingDialTimeout = 10 * time.Second

type SignalingHandler struct {
	cache *services.CameraCache
	wyze  *services.WyzeService
}

func NewSignalingHandler(cache *services.CameraCache, wyze *services.WyzeService) *SignalingHandler {
	return &SignalingHandler{
		cache: cache,
		wyze:  wyze,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GetSignaling returns the WebRTC signaling bundle for one camera: the
// authenticated signaling URL, the ICE server list, and the client id the
// browser should identify itself with.
func (h *SignalingHandler) GetSignaling(c *gin.Context) {
	nameURI := c.Param("name_uri")

	cam, err := h.cache.Find(nameURI)
	if err != nil {
		if errors.Is(err, models.ErrCameraNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found", "result": "error"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": "error", "cam": nameURI})
		}
		return
	}

	bundle, err := h.wyze.GetSignaling(cam.Mac)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": "error", "cam": nameURI})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ClientId":     bundle.ClientID,
		"signalingUrl": bundle.SignalingURL,
		"servers":      bundle.Servers,
		"result":       "ok",
		"cam":          nameURI,
	})
}

// ProxySignaling upgrades the request to a WebSocket and relays frames
// between the browser and the vendor signaling endpoint. Browsers cannot
// attach the auth headers the vendor expects, so the proxy dials the
// authenticated URL on their behalf.
func (h *SignalingHandler) ProxySignaling(c *gin.Context) {
	nameURI := c.Param("name_uri")

	cam, err := h.cache.Find(nameURI)
	if err != nil {
		if errors.Is(err, models.ErrCameraNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Camera not found", "result": "error"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": "error", "cam": nameURI})
		}
		return
	}

	bundle, err := h.wyze.GetSignaling(cam.Mac)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": "error", "cam": nameURI})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[Signaling] WebSocket upgrade failed for %s: %v", nameURI, err)
		return
	}
	defer conn.Close()

	dialer := &websocket.Dialer{HandshakeTimeout: signalingDialTimeout}
	remote, _, err := dialer.Dial(bundle.SignalingURL, nil)
	if err != nil {
		log.Printf("[Signaling] Upstream dial failed for %s: %v", nameURI, err)
		closeMsg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "upstream dial failed")
		_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
		return
	}
	defer remote.Close()

	log.Printf("[Signaling] Relaying signaling for %s", nameURI)
	errc := make(chan error, 2)
	go relayFrames(remote, conn, errc)
	go relayFrames(conn, remote, errc)

	// Closing both sockets on the first error unblocks the other relay
	// goroutine, which then drains into the buffered channel.
	<-errc
}

func relayFrames(dst, src *websocket.Conn, errc chan<- error) {
	for {
		messageType, data, err := src.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		if err := dst.WriteMessage(messageType, data); err != nil {
			errc <- err
			return
		}
	}
}
