package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lukasbauer/voxlate/internal/extract"
	"github.com/lukasbauer/voxlate/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is the single message a client sends. A file is sent as
// base64 together with its name, which selects the extractor.
type wsRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	FileName       string `json:"file_name,omitempty"`
	FileBase64     string `json:"file_base64,omitempty"`
}

// wsMessage is one server frame: "progress", "result" or "error".
type wsMessage struct {
	Type     string             `json:"type"`
	Progress *pipeline.Event    `json:"progress,omitempty"`
	Result   *translateResponse `json:"result,omitempty"`
	Error    *errorResponse     `json:"error,omitempty"`
}

// wsConn serializes writes; progress may arrive from several goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg wsMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

func (r *Router) handleTranslateWS(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("translate_ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(r.cfg.MaxUploadBytes*4/3 + 4096) // base64 overhead
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			r.logger.Printf("translate_ws: read error: %v", err)
		}
		return
	}

	c := &wsConn{conn: conn}
	pr, errResp := parseWSRequest(raw)
	if errResp != nil {
		_ = c.send(wsMessage{Type: "error", Error: errResp})
		r.closeWS(c)
		return
	}
	pr.Progress = func(e pipeline.Event) {
		if err := c.send(wsMessage{Type: "progress", Progress: &e}); err != nil {
			r.logger.Printf("translate_ws: progress write failed for run %s: %v", e.RunID, err)
		}
	}

	res, err := r.pipeline.Run(req.Context(), pr)
	if err == nil {
		var resp *translateResponse
		if resp, err = r.buildResponse(res); err == nil {
			_ = c.send(wsMessage{Type: "result", Result: resp})
			r.closeWS(c)
			return
		}
	}

	_, kind := classifyError(err)
	if kind == kindInternal {
		captureError(req, err, "translate_ws: unexpected error")
	}
	r.logger.Printf("translate_ws: %s: %v", kind, err)
	_ = c.send(wsMessage{Type: "error", Error: &errorResponse{Error: err.Error(), Kind: kind}})
	r.closeWS(c)
}

func parseWSRequest(raw []byte) (pipeline.Request, *errorResponse) {
	var msg wsRequest
	if err := json.Unmarshal(raw, &msg); err != nil {
		return pipeline.Request{}, &errorResponse{Error: "invalid request message", Kind: kindInvalidRequest}
	}

	pr := pipeline.Request{Text: msg.Text, TargetLanguage: targetLanguage(msg.TargetLanguage)}
	if msg.FileBase64 == "" {
		return pr, nil
	}

	format, err := extract.DetectFormat(msg.FileName, "")
	if err != nil {
		return pr, &errorResponse{Error: err.Error(), Kind: kindUnsupportedFormat}
	}
	data, err := base64.StdEncoding.DecodeString(msg.FileBase64)
	if err != nil {
		return pr, &errorResponse{Error: "file_base64 is not valid base64", Kind: kindInvalidRequest}
	}
	pr.Document = &extract.Document{Name: msg.FileName, Format: format, Data: data}
	return pr, nil
}

func (r *Router) closeWS(c *wsConn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
