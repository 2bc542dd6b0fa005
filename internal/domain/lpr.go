package domain

// DTO cho API nhận dạng biển số từ ảnh. Nếu gửi kèm site/lane/direction thì
// biển số nhận dạng được đưa thẳng vào luồng entry/exit.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
	SiteID      int    `json:"site_id,omitempty"`
	LaneID      string `json:"lane_id,omitempty"`
	Direction   string `json:"direction,omitempty" binding:"omitempty,oneof=entry exit"`
}

type LPRResponseDTO struct {
	DetectedPlate string          `json:"detected_plate"`
	Confidence    float32         `json:"confidence,omitempty"`
	Session       *ParkingSession `json:"session,omitempty"`
	FeeDue        *int64          `json:"fee_due,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
}
