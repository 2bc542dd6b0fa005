package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/onedayonepaper/parkflow-sub000/internal/domain"
)

// IoTBarrierDriver đẩy lệnh rào chắn xuống ESP32 qua MQTT (AWS IoT Core
// data plane). Topic đánh theo thing name để mỗi thiết bị chỉ nghe lệnh
// của mình.
type IoTBarrierDriver struct {
	iotDataClient *iotdataplane.Client
	topicPrefix   string
}

func NewIoTBarrierDriver(client *iotdataplane.Client, topicPrefix string) *IoTBarrierDriver {
	if topicPrefix == "" {
		topicPrefix = "parkflow/command/barriers"
	}
	return &IoTBarrierDriver{iotDataClient: client, topicPrefix: topicPrefix}
}

func (d *IoTBarrierDriver) SendCommand(ctx context.Context, barrier domain.Barrier, action domain.BarrierAction, requestID string) error {
	if d.iotDataClient == nil {
		return fmt.Errorf("IoT data plane client chưa được khởi tạo")
	}

	topic := fmt.Sprintf("%s/%s", d.topicPrefix, barrier.Esp32ThingName)
	payload := domain.BarrierControlCommandPayload{
		Command:   string(action),
		RequestID: requestID,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("lỗi marshal payload lệnh rào chắn: %w", err)
	}

	log.Printf("IoTBarrierDriver: Đang publish lệnh '%s' (ReqID: %s) tới topic %s", action, requestID, topic)
	_, err = d.iotDataClient.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("lỗi publish lệnh MQTT: %w", err)
	}

	log.Printf("Đã gửi lệnh '%s' (ReqID: %s) tới rào chắn làn %s (%s)", action, requestID, barrier.LaneID, barrier.Esp32ThingName)
	return nil
}
