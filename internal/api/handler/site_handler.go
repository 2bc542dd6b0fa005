package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
)

// SiteHandler quản lý danh mục bãi xe và rào chắn của bãi. CRUD mỏng nên đi
// thẳng xuống repository, không qua service.
type SiteHandler struct {
	siteRepo    repository.SiteRepository
	barrierRepo repository.BarrierRepository
}

func NewSiteHandler(siteRepo repository.SiteRepository, barrierRepo repository.BarrierRepository) *SiteHandler {
	return &SiteHandler{siteRepo: siteRepo, barrierRepo: barrierRepo}
}

// POST /sites
func (h *SiteHandler) CreateSite(c *gin.Context) {
	var dto domain.SiteDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	site, err := h.siteRepo.Create(c.Request.Context(), &domain.Site{Name: dto.Name, Address: dto.Address})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo bãi xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, site)
}

// GET /sites
func (h *SiteHandler) GetAllSites(c *gin.Context) {
	sites, err := h.siteRepo.FindAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách bãi xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sites)
}

// GET /sites/:site_id
func (h *SiteHandler) GetSiteByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("site_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Site ID không hợp lệ"})
		return
	}

	site, err := h.siteRepo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy thông tin bãi xe", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, site)
}

type createBarrierDTO struct {
	LaneID         string `json:"lane_id" binding:"required"`
	Esp32ThingName string `json:"esp32_thing_name" binding:"required"`
	Direction      string `json:"direction" binding:"required,oneof=entry exit"`
}

// POST /sites/:site_id/barriers
func (h *SiteHandler) CreateBarrier(c *gin.Context) {
	siteID, err := strconv.Atoi(c.Param("site_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Site ID không hợp lệ"})
		return
	}

	var dto createBarrierDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	if _, err := h.siteRepo.FindByID(c.Request.Context(), siteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy bãi xe"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi kiểm tra bãi xe", "details": err.Error()})
		return
	}

	barrier, err := h.barrierRepo.Create(c.Request.Context(), &domain.Barrier{
		SiteID:         siteID,
		LaneID:         dto.LaneID,
		Esp32ThingName: dto.Esp32ThingName,
		Direction:      dto.Direction,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo rào chắn", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, barrier)
}
