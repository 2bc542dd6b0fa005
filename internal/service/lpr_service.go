package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
)

// Regex cơ bản cho biển số Việt Nam, ví dụ: 29A-123.45, 51G-12345.
// Chưa phủ hết các định dạng đặc biệt (NG, QT, biển vuông hai dòng).
var plateRegex = regexp.MustCompile(`^[0-9]{2}[A-Z]{1,2}[- ]?[0-9]{3,5}(\.[0-9]{2})?$`)

type LPRService struct {
	rekognitionClient   *rekognition.Client
	confidenceThreshold float32
}

func NewLPRService(rekClient *rekognition.Client, confidenceThreshold float32) *LPRService {
	return &LPRService{rekognitionClient: rekClient, confidenceThreshold: confidenceThreshold}
}

// ProcessImageForLPR nhận ảnh dưới dạng bytes, gọi Rekognition DetectText và
// trích xuất biển số có độ tin cậy cao nhất. Biển số trả về đã qua
// NormalizePlate nên dùng được thẳng cho entry/exit.
func (s *LPRService) ProcessImageForLPR(ctx context.Context, imageBytes []byte) (string, float32, error) {
	if s.rekognitionClient == nil {
		return "", 0, fmt.Errorf("Rekognition client chưa được khởi tạo")
	}

	input := &rekognition.DetectTextInput{
		Image: &types.Image{
			Bytes: imageBytes,
		},
	}

	result, err := s.rekognitionClient.DetectText(ctx, input)
	if err != nil {
		log.Printf("LPRService: Lỗi khi gọi Rekognition DetectText: %v", err)
		return "", 0, fmt.Errorf("lỗi Rekognition: %w", err)
	}

	var detectedTexts []string
	var bestPlate string
	var maxConfidence float32

	for _, textDetection := range result.TextDetections {
		if textDetection.Type != types.TextTypesLine && textDetection.Type != types.TextTypesWord {
			continue
		}
		if textDetection.DetectedText == nil || textDetection.Confidence == nil {
			continue
		}

		txt := domain.NormalizePlate(*textDetection.DetectedText)
		detectedTexts = append(detectedTexts, fmt.Sprintf("%s (%.2f)", txt, *textDetection.Confidence))

		if plateRegex.MatchString(txt) && *textDetection.Confidence > maxConfidence {
			maxConfidence = *textDetection.Confidence
			bestPlate = txt
		}
	}

	if bestPlate == "" {
		log.Printf("LPRService: Không tìm thấy biển số nào khớp regex. Văn bản nhận dạng: %s", strings.Join(detectedTexts, ", "))
		return "", 0, fmt.Errorf("không nhận dạng được biển số từ ảnh")
	}
	if maxConfidence < s.confidenceThreshold {
		log.Printf("LPRService: Biển số '%s' có độ tin cậy %.2f dưới ngưỡng %.2f, bỏ qua", bestPlate, maxConfidence, s.confidenceThreshold)
		return "", maxConfidence, fmt.Errorf("độ tin cậy %.2f dưới ngưỡng %.2f", maxConfidence, s.confidenceThreshold)
	}

	log.Printf("LPRService: Biển số được chọn: '%s' với độ tin cậy: %.2f", bestPlate, maxConfidence)
	return bestPlate, maxConfidence, nil
}
