// services/network-svc/internal/handlers/export.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
)

// ExportNetworkWorkbook GET /api/v1/export/network.xlsx
func (h *Handlers) ExportNetworkWorkbook(w http.ResponseWriter, r *http.Request) {
	data, err := h.exports.NetworkWorkbook(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	writeAttachment(w, "network.xlsx", contentTypeXLSX, data)
}

// ExportSupplyWorkbook GET /api/v1/export/supply.xlsx
func (h *Handlers) ExportSupplyWorkbook(w http.ResponseWriter, r *http.Request) {
	data, err := h.exports.SupplyWorkbook(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	writeAttachment(w, "supply.xlsx", contentTypeXLSX, data)
}

// ExportCoveragePDF GET /api/v1/export/coverage.pdf
func (h *Handlers) ExportCoveragePDF(w http.ResponseWriter, r *http.Request) {
	data, err := h.exports.CoveragePDF(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	writeAttachment(w, "coverage.pdf", contentTypePDF, data)
}

// ImportNetwork POST /api/v1/import/network, тело запроса это книга xlsx
func (h *Handlers) ImportNetwork(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBodyBytes)
	defer body.Close()

	report, err := h.exports.ImportNetwork(r.Context(), body)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		slog.Debug("download interrupted", "file", filename, "error", err)
	}
}
