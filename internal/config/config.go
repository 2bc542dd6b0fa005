package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion         string
	SQSEventQueueURL  string
	IoTMQTTEndpoint   string
	IoTCommandTopic   string // prefix topic lệnh rào chắn, nối thêm thing name
	RekognitionEnable bool

	BarrierCommandTimeout time.Duration // timeout chờ publish lệnh xuống thiết bị
	IdempotencyWindow     time.Duration // cửa sổ hấp thụ lệnh rào chắn trùng lặp

	LPRConfidenceThreshold float32 // ngưỡng tin cậy tối thiểu chấp nhận biển số

	JWTSecret     string
	JWTExpiration time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Cảnh báo: Không thể tải file .env: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	cmdTimeoutSec, _ := strconv.Atoi(getEnv("BARRIER_COMMAND_TIMEOUT_SECONDS", "5"))
	idemWindowSec, _ := strconv.Atoi(getEnv("BARRIER_IDEMPOTENCY_WINDOW_SECONDS", "120"))
	lprThreshold, _ := strconv.ParseFloat(getEnv("LPR_CONFIDENCE_THRESHOLD", "80"), 32)

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "parkflow"),
		DBPassword: getEnv("DB_PASSWORD", "parkflow"),
		DBName:     getEnv("DB_NAME", "parkflow_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:         getEnv("AWS_REGION", "ap-southeast-1"),
		SQSEventQueueURL:  getEnv("SQS_EVENT_QUEUE_URL", ""),
		IoTMQTTEndpoint:   getEnv("IOT_MQTT_ENDPOINT", ""),
		IoTCommandTopic:   getEnv("IOT_COMMAND_TOPIC", "parkflow/command/barriers"),
		RekognitionEnable: getEnv("REKOGNITION_ENABLE", "true") == "true",

		BarrierCommandTimeout: time.Duration(cmdTimeoutSec) * time.Second,
		IdempotencyWindow:     time.Duration(idemWindowSec) * time.Second,

		LPRConfidenceThreshold: float32(lprThreshold),

		JWTSecret:     getEnv("JWT_SECRET", "parkflow-dev-secret-!@#$"),
		JWTExpiration: time.Duration(jwtExpHours) * time.Hour,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Biến môi trường '%s' không được đặt, sử dụng giá trị mặc định: '%s'", key, fallback)
	return fallback
}
