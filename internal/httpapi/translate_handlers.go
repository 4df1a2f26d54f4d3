package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lukasbauer/voxlate/internal/artifacts"
	"github.com/lukasbauer/voxlate/internal/costs"
	"github.com/lukasbauer/voxlate/internal/extract"
	"github.com/lukasbauer/voxlate/internal/pipeline"
	"github.com/lukasbauer/voxlate/internal/tts"
)

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	RunID          string         `json:"run_id"`
	TranslatedText string         `json:"translated_text"`
	Chunks         int            `json:"chunks"`
	LanguageCode   string         `json:"language_code"`
	TextURL        string         `json:"text_url,omitempty"`
	AudioURL       string         `json:"audio_url,omitempty"`
	AudioBase64    string         `json:"audio_base64"`
	Costs          costs.RunCosts `json:"costs"`
	DurationMs     int64          `json:"duration_ms"`
}

func targetLanguage(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return tts.DefaultLanguage
}

func (r *Router) handleTranslate(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxUploadBytes)

	var body translateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			r.writeError(w, req, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Kind: kindInvalidRequest})
		return
	}

	r.runPipeline(w, req, pipeline.Request{
		Text:           body.Text,
		TargetLanguage: targetLanguage(body.TargetLanguage),
	})
}

func (r *Router) handleTranslateFile(w http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(w, req.Body, r.cfg.MaxUploadBytes)

	file, header, err := req.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			r.writeError(w, req, err)
			return
		}
		if errors.Is(err, http.ErrMissingFile) {
			r.writeError(w, req, pipeline.ErrEmptyInput)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form", Kind: kindInvalidRequest})
		return
	}
	defer file.Close()

	format, err := extract.DetectFormat(header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		r.writeError(w, req, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	r.runPipeline(w, req, pipeline.Request{
		Document:       &extract.Document{Name: header.Filename, Format: format, Data: data},
		TargetLanguage: targetLanguage(req.FormValue("target_language")),
	})
}

func (r *Router) runPipeline(w http.ResponseWriter, req *http.Request, pr pipeline.Request) {
	res, err := r.pipeline.Run(req.Context(), pr)
	if err != nil {
		r.writeError(w, req, err)
		return
	}

	resp, err := r.buildResponse(res)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (r *Router) buildResponse(res *pipeline.Result) (*translateResponse, error) {
	resp := &translateResponse{
		RunID:          res.RunID,
		TranslatedText: res.TranslatedText,
		Chunks:         res.Chunks,
		LanguageCode:   res.LanguageCode,
		Costs:          res.Costs,
		DurationMs:     res.Duration.Milliseconds(),
	}
	if res.Audio != nil {
		resp.AudioBase64 = base64.StdEncoding.EncodeToString(res.Audio.Data)
	}

	var err error
	if res.TextPath != "" {
		if resp.TextURL, err = r.downloadURL(res.RunID, artifacts.KindText); err != nil {
			return nil, fmt.Errorf("failed to sign download link: %w", err)
		}
	}
	if res.AudioPath != "" {
		if resp.AudioURL, err = r.downloadURL(res.RunID, artifacts.KindAudio); err != nil {
			return nil, fmt.Errorf("failed to sign download link: %w", err)
		}
	}
	return resp, nil
}
