package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ttbverify/labelverify/internal/http/response"
	"github.com/ttbverify/labelverify/internal/ingress"
)

const maxUploadBytes = 11 * 1024 * 1024 // slightly above the 10MiB cap so the cap itself produces a clean 413, not a body-too-large abort

type VerifyHandler struct {
	ingress *ingress.Service
}

func NewVerifyHandler(svc *ingress.Service) *VerifyHandler {
	return &VerifyHandler{ingress: svc}
}

// POST /api/v1/verify
func (h *VerifyHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_image", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_image", err)
		return
	}
	defer file.Close()

	imageBytes, err := io.ReadAll(file)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_image", err)
		return
	}

	sub := ingress.Submission{
		ImageBytes:   imageBytes,
		DeclaredType: fileHeader.Header.Get("Content-Type"),
	}
	if brand := c.PostForm("brand_name"); brand != "" {
		sub.ExpectedBrand = &brand
	}
	if class := c.PostForm("class_type"); class != "" {
		sub.ExpectedClass = &class
	}
	if abvRaw := c.PostForm("expected_abv"); abvRaw != "" {
		abv, parseErr := strconv.ParseFloat(abvRaw, 64)
		if parseErr != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_expected_abv", parseErr)
			return
		}
		sub.ExpectedABV = &abv
	}

	jobID, err := h.ingress.Submit(c.Request.Context(), sub)
	if err != nil {
		if verr, ok := err.(*ingress.ValidationError); ok {
			response.RespondError(c, verr.Status, "validation_failed", verr)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "submit_failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID.String(),
		"status":  "pending",
		"message": "label verification job accepted",
	})
}

// GET /api/v1/verify/:job_id
func (h *VerifyHandler) GetStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}

	status, err := h.ingress.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job %s not found", jobID))
		return
	}

	body := gin.H{
		"job_id": status.JobID.String(),
		"status": string(status.State),
	}
	if status.Result != nil {
		body["result"] = status.Result
	}
	if status.Error != nil {
		body["error"] = *status.Error
	}
	c.JSON(http.StatusOK, body)
}
