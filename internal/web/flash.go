package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

const flashCookie = "flash"

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Kind    string `json:"k"` // success, error, info
	Message string `json:"m"`
}

// AddFlash queues a message for the next page.
func AddFlash(c *gin.Context, kind, message string) {
	flashes := pendingFlashes(c)
	flashes = append(flashes, Flash{Kind: kind, Message: message})
	c.Set(flashCookie, flashes)

	data, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(data),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// pendingFlashes returns the messages added during this request.
func pendingFlashes(c *gin.Context) []Flash {
	if v, ok := c.Get(flashCookie); ok {
		if f, ok := v.([]Flash); ok {
			return f
		}
	}
	return nil
}

// TakeFlashes returns the messages left by the previous request, followed
// by any added during this one, and clears them.
func TakeFlashes(c *gin.Context) []Flash {
	pending := pendingFlashes(c)
	raw, err := c.Cookie(flashCookie)
	if (err != nil || raw == "") && len(pending) == 0 {
		return nil
	}
	http.SetCookie(c.Writer, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	c.Set(flashCookie, []Flash(nil))

	var flashes []Flash
	if data, err := base64.RawURLEncoding.DecodeString(raw); err == nil && len(data) > 0 {
		if err := json.Unmarshal(data, &flashes); err != nil {
			flashes = nil
		}
	}
	return append(flashes, pending...)
}
