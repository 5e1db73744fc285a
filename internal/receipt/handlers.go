package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zombor/receipt-interpreter/internal/category"
)

// maxFormSize handles high-resolution phone photos and multi-page PDFs
const maxFormSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes {"error": message} with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, category.ErrInvalidCategory), errors.Is(err, ErrEmptyReceipt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

// detectContentType falls back to the file extension when the part has no type
func detectContentType(header *multipart.FileHeader) string {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".gif":
			contentType = "image/gif"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func readUpload(header *multipart.FileHeader) (Upload, error) {
	f, err := header.Open()
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, err
	}
	return Upload{
		Filename:    header.Filename,
		Data:        data,
		ContentType: detectContentType(header),
	}, nil
}

// handleUploadReceipt accepts the OCR text, one or more files, or both
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errorMsg = "Upload is too large. Maximum size is 50MB. Please compress or resize your images."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	text := r.FormValue("text")
	headers := r.MultipartForm.File["file"]

	uploads := make([]Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := readUpload(header)
		if err != nil {
			slog.Error("Error reading file data", "error", err, "filename", header.Filename)
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, upload)
	}

	receipt, err := s.service.ProcessReceipt(r.Context(), text, uploads)
	if err != nil {
		slog.Error("Error processing receipt", "files", len(uploads), "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		corsError(w, "Receipt not found", statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns one stored page; ?page=N selects it
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	page := 0
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			corsError(w, "Invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"), page)
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		slog.Error("Error deleting receipt", "error", err)
		corsError(w, "Error deleting receipt", statusFor(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleConfirmCategory records the user's category and learns from it
func (s *Server) handleConfirmCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string `json:"category"`
		Merchant string `json:"merchant"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := s.service.ConfirmCategory(r.PathValue("id"), req.Category, req.Merchant)
	if err != nil {
		slog.Error("Error confirming category", "error", err)
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleListKeywords returns the learned keywords
func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	learned, err := s.service.ListLearnedKeywords()
	if err != nil {
		slog.Error("Error listing learned keywords", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if learned == nil {
		learned = []category.LearnedKeyword{}
	}

	writeJSON(w, http.StatusOK, learned)
}

// handleResetKeywords forgets every learned keyword
func (s *Server) handleResetKeywords(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetLearnedKeywords(); err != nil {
		slog.Error("Error resetting learned keywords", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListCategories returns the category vocabulary
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, category.Names())
}
