package http

import (
	"net/http"
	"time"

	"conti/internal/blob"
	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/receipt"
)

type analyzeResponse struct {
	Receipt             core.ReceiptData `json:"receipt"`
	ReceiptURL          string           `json:"receiptUrl"`
	SuggestedCategoryID string           `json:"suggestedCategoryId,omitempty"`
}

func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Image string `json:"image"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	img, err := receipt.DecodeImage(in.Image)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentReceipt)

	key := blob.ReceiptKey(u.GroupID, img.Format, time.Now().UTC())
	url, err := s.deps.Blobs.Put(ctx, key, img.Data, img.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := s.deps.Analyzer.Analyze(ctx, in.Image)
	if err != nil {
		if derr := s.deps.Blobs.Delete(ctx, key); derr != nil {
			logger.WarnContext(ctx, "Receipt cleanup failed", log.FieldError, derr, "key", key)
		}
		writeError(w, r, err)
		return
	}

	name := data.Category
	if name == "" {
		name = receipt.SuggestCategory(data.Merchant)
	}
	categoryID, categoryName := s.deps.Categories.Resolve(ctx, u.GroupID, "", name)
	data.Category = categoryName

	logger.InfoContext(ctx, "Receipt analyzed",
		log.FieldOperation, log.OpAnalyze, log.FieldGroupID, u.GroupID, log.FieldAmount, data.Amount.String())
	writeJSON(w, http.StatusOK, analyzeResponse{Receipt: data, ReceiptURL: url, SuggestedCategoryID: categoryID})
}

type parseResponse struct {
	receipt.Draft
	CategoryID string `json:"categoryId,omitempty"`
	Date       string `json:"date"`
}

func (s *Server) handleParseTranscript(w http.ResponseWriter, r *http.Request) {
	u, err := s.caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in struct {
		Transcript string `json:"transcript"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	draft, err := receipt.ParseTranscript(sanitizeInput(in.Transcript))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx := r.Context()
	categoryID, categoryName := s.deps.Categories.Resolve(ctx, u.GroupID, "", draft.Category)
	draft.Category = categoryName
	writeJSON(w, http.StatusOK, parseResponse{
		Draft:      draft,
		CategoryID: categoryID,
		Date:       time.Now().UTC().Format(time.DateOnly),
	})
}
