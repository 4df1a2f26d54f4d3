package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lukasbauer/voxlate/internal/artifacts"
)

// DownloadClaims authorizes fetching one artifact kind.
type DownloadClaims struct {
	jwt.RegisteredClaims
	Kind string `json:"kind"`
}

// signDownloadToken issues a short-lived token for kind. Subject is the run ID.
func (r *Router) signDownloadToken(runID string, kind artifacts.Kind) (string, error) {
	now := time.Now()
	claims := DownloadClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   runID,
			ExpiresAt: jwt.NewNumericDate(now.Add(r.cfg.DownloadTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Kind: string(kind),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(r.cfg.DownloadTokenSecret))
}

// verifyDownloadToken checks signature, expiry and that the token was issued for kind.
func (r *Router) verifyDownloadToken(tokenString string, kind artifacts.Kind) (*DownloadClaims, error) {
	parser := jwt.NewParser(jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &DownloadClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(r.cfg.DownloadTokenSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*DownloadClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Kind != string(kind) {
		return nil, fmt.Errorf("token issued for %q, not %q", claims.Kind, kind)
	}
	return claims, nil
}

// downloadURL builds the signed link for kind, absolute when a public base is configured.
func (r *Router) downloadURL(runID string, kind artifacts.Kind) (string, error) {
	token, err := r.signDownloadToken(runID, kind)
	if err != nil {
		return "", err
	}
	return r.cfg.PublicBaseURL + "/api/downloads/" + string(kind) + "?token=" + url.QueryEscape(token), nil
}

func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) {
	kind, err := artifacts.ParseKind(req.PathValue("kind"))
	if err != nil {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
		return
	}

	tokenString := req.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, `{"error": "missing token"}`, http.StatusUnauthorized)
		return
	}
	claims, err := r.verifyDownloadToken(tokenString, kind)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			http.Error(w, `{"error": "link expired"}`, http.StatusUnauthorized)
			return
		}
		http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
		return
	}

	data, err := r.artifacts.Read(kind)
	if errors.Is(err, artifacts.ErrNotFound) {
		http.Error(w, `{"error": "nothing to download yet"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		r.logger.Printf("downloads: read %s for run %s: %v", kind, claims.Subject, err)
		captureError(req, err, "downloads: failed to read artifact")
		http.Error(w, `{"error": "failed to read file"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", artifacts.ContentType(kind))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifacts.FileName(kind)))
	_, _ = w.Write(data)
}
