package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
	"github.com/onedayonepaper/parkflow-sub000/internal/service"
)

type BarrierHandler struct {
	barrierService *service.BarrierService
}

func NewBarrierHandler(bs *service.BarrierService) *BarrierHandler {
	return &BarrierHandler{barrierService: bs}
}

// POST /barriers/commands
func (h *BarrierHandler) IssueCommand(c *gin.Context) {
	var dto domain.IssueBarrierCommandDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	cmd, err := h.barrierService.IssueCommand(c.Request.Context(), dto.LaneID, domain.BarrierAction(dto.Action), dto.Reason, dto.CorrelationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrBarrierCommandFailed) {
			// Lệnh đã vào sổ với trạng thái failed; trả kèm dòng sổ
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "command": cmd})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể ra lệnh rào chắn", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cmd)
}

type emergencyOpenDTO struct {
	Reason string `json:"reason" binding:"required"`
}

// POST /barriers/emergency-open
func (h *BarrierHandler) EmergencyOpen(c *gin.Context) {
	var dto emergencyOpenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	result, err := h.barrierService.EmergencyOpenAll(c.Request.Context(), dto.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể mở khẩn cấp", "details": err.Error()})
		return
	}
	// 207: một phần thiết bị có thể thất bại, chi tiết nằm trong result.Failed
	statusCode := http.StatusOK
	if len(result.Failed) > 0 {
		statusCode = http.StatusMultiStatus
	}
	c.JSON(statusCode, result)
}
