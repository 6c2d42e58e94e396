package api

import (
	"encoding/hex"

	"github.com/samcharles93/ptnfw/pkg/ptn"
)

type ErrorResponse struct {
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ModelInfo struct {
	Key         string `json:"key"`
	ID          string `json:"id"`
	Vendor      string `json:"vendor"`
	Placeholder string `json:"md5_placeholder"`
}

type ModelList struct {
	Default string      `json:"default"`
	Models  []ModelInfo `json:"models"`
}

type HeaderInfo struct {
	TotalSize      uint32 `json:"total_size"`
	Checksum       string `json:"checksum"`
	Vendor         string `json:"vendor"`
	ModelID        string `json:"model_id"`
	SizeConsistent bool   `json:"size_consistent"`
}

type EntryInfo struct {
	Name   string            `json:"name"`
	Base   uint64            `json:"base"`
	Size   uint64            `json:"size"`
	Extra  map[string]string `json:"extra,omitempty"`
	Bounds bool              `json:"in_bounds"`
}

type InspectResponse struct {
	Size    int         `json:"size"`
	Header  HeaderInfo  `json:"header"`
	Entries []EntryInfo `json:"entries"`
}

type CheckResponse struct {
	Model    string `json:"model"`
	Match    bool   `json:"match"`
	Stored   string `json:"stored"`
	Expected string `json:"expected"`
}

func modelInfo(m ptn.Model) ModelInfo {
	ph := m.PlaceholderDigest()
	return ModelInfo{
		Key:         m.Key,
		ID:          hex.EncodeToString(m.ID[:]),
		Vendor:      m.Vendor,
		Placeholder: hex.EncodeToString(ph[:]),
	}
}

// Describe summarises a parsed image.
func Describe(img *ptn.Image) InspectResponse {
	resp := InspectResponse{
		Size: len(img.Data),
		Header: HeaderInfo{
			TotalSize:      img.Header.TotalSize,
			Checksum:       hex.EncodeToString(img.Header.Checksum[:]),
			Vendor:         img.Header.VendorString(),
			ModelID:        hex.EncodeToString(img.Header.ModelID[:]),
			SizeConsistent: img.SizeConsistent(),
		},
		Entries: make([]EntryInfo, 0, len(img.Entries)),
	}
	for _, e := range img.Entries {
		info := EntryInfo{Name: e.Name, Base: e.Base, Size: e.Size}
		if len(e.Extra) > 0 {
			info.Extra = make(map[string]string, len(e.Extra))
			for _, f := range e.Extra {
				info.Extra[f.Key] = f.Value
			}
		}
		_, err := img.Payload(e)
		info.Bounds = err == nil
		resp.Entries = append(resp.Entries, info)
	}
	return resp
}
