package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
	"github.com/onedayonepaper/parkflow-sub000/internal/repository"
	"github.com/onedayonepaper/parkflow-sub000/internal/service"
)

type RatePlanHandler struct {
	ratePlanService *service.RatePlanService
	discountAdmin   *service.DiscountAdminService
}

func NewRatePlanHandler(rps *service.RatePlanService, da *service.DiscountAdminService) *RatePlanHandler {
	return &RatePlanHandler{ratePlanService: rps, discountAdmin: da}
}

// POST /rate-plans
func (h *RatePlanHandler) CreatePlan(c *gin.Context) {
	var dto domain.RatePlanDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	plan, err := h.ratePlanService.CreatePlan(c.Request.Context(), dto)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrRateRuleInvalid) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể tạo biểu phí", "details": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// GET /rate-plans/:id
func (h *RatePlanHandler) GetPlanByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID biểu phí không hợp lệ"})
		return
	}

	plan, err := h.ratePlanService.GetPlan(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy biểu phí"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy biểu phí", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

// GET /sites/:site_id/rate-plans
func (h *RatePlanHandler) ListPlansBySite(c *gin.Context) {
	siteID, err := strconv.Atoi(c.Param("site_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Site ID không hợp lệ"})
		return
	}

	plans, err := h.ratePlanService.ListBySite(c.Request.Context(), siteID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy danh sách biểu phí", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plans)
}

// POST /sites/:site_id/rate-plans/:id/activate
func (h *RatePlanHandler) ActivatePlan(c *gin.Context) {
	siteID, err := strconv.Atoi(c.Param("site_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Site ID không hợp lệ"})
		return
	}
	planID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID biểu phí không hợp lệ"})
		return
	}

	if err := h.ratePlanService.ActivatePlan(c.Request.Context(), siteID, planID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Không thể kích hoạt biểu phí", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã kích hoạt biểu phí"})
}

// POST /discount-rules
func (h *RatePlanHandler) CreateDiscountRule(c *gin.Context) {
	var dto domain.DiscountRuleDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Dữ liệu không hợp lệ: " + err.Error()})
		return
	}

	rule, err := h.discountAdmin.CreateRule(c.Request.Context(), dto)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GET /discount-rules/:id
func (h *RatePlanHandler) GetDiscountRuleByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID rule không hợp lệ"})
		return
	}

	rule, err := h.discountAdmin.GetRule(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Không tìm thấy rule giảm giá"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lỗi khi lấy rule giảm giá", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}
