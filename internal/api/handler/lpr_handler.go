package handler

import (
	"encoding/base64"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/service"
)

type LPRHandler struct {
	lprService     *service.LPRService
	sessionService *service.SessionService
}

func NewLPRHandler(lprService *service.LPRService, sessionService *service.SessionService) *LPRHandler {
	return &LPRHandler{lprService: lprService, sessionService: sessionService}
}

// POST /api/v1/lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload không hợp lệ: " + err.Error()})
		return
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		log.Printf("LPRHandler: Lỗi giải mã ảnh base64: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu ảnh không hợp lệ"})
		return
	}
	if len(imageBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu ảnh rỗng"})
		return
	}

	detectedPlate, confidence, err := h.lprService.ProcessImageForLPR(c.Request.Context(), imageBytes)
	if err != nil {
		log.Printf("LPRHandler: Lỗi từ LPRService: %v", err)
		c.JSON(http.StatusOK, domain.LPRResponseDTO{
			Confidence:   confidence,
			ErrorMessage: "Không nhận dạng được biển số: " + err.Error(),
		})
		return
	}

	resp := domain.LPRResponseDTO{DetectedPlate: detectedPlate, Confidence: confidence}

	// Có đủ ngữ cảnh làn thì đưa luôn vào luồng vào/ra
	switch req.Direction {
	case "entry":
		session, err := h.sessionService.HandleEntryEvent(c.Request.Context(), domain.EntryEventDTO{
			Plate:  detectedPlate,
			LaneID: req.LaneID,
			SiteID: req.SiteID,
		})
		if err != nil {
			resp.ErrorMessage = err.Error()
		} else {
			resp.Session = session
		}
	case "exit":
		result, err := h.sessionService.HandleExitEvent(c.Request.Context(), domain.ExitEventDTO{
			Plate:  detectedPlate,
			SiteID: req.SiteID,
			LaneID: req.LaneID,
		})
		if err != nil {
			resp.ErrorMessage = err.Error()
		} else {
			resp.Session = result.Session
			resp.FeeDue = &result.FeeDue
		}
	}

	c.JSON(http.StatusOK, resp)
}
