package handler

import (
	"encoding/json"
	"net/http"
)

type availableResponse struct {
	Available bool   `json:"available"`
	Source    string `json:"source"`
}

type correctionsResponse struct {
	Corrections uint64 `json:"corrections"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type valueResponse[T any] struct {
	Value     T    `json:"value"`
	Corrected bool `json:"corrected"`
}

type random64Response struct {
	Value     uint64 `json:"value"`
	Hex       string `json:"hex"`
	Corrected bool   `json:"corrected"`
}

type rangeResponse struct {
	Lower     int32 `json:"lower"`
	Upper     int32 `json:"upper"`
	Value     int32 `json:"value"`
	Corrected bool  `json:"corrected"`
}

type tokenResponse struct {
	Token  string `json:"token"`
	Length int    `json:"length"`
}

type passphraseResponse struct {
	Passphrase string `json:"passphrase"`
	Words      int    `json:"words"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
