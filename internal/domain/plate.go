package domain

import "strings"

// NormalizePlate chuẩn hóa biển số: bỏ khoảng trắng, gạch ngang, dấu chấm và viết hoa.
// Mọi so khớp biển số trong hệ thống (session, blacklist, VIP, membership)
// đều dùng dạng đã chuẩn hóa này.
func NormalizePlate(value string) string {
	value = strings.ReplaceAll(value, " ", "")
	value = strings.ReplaceAll(value, "-", "")
	value = strings.ReplaceAll(value, ".", "")
	return strings.ToUpper(value)
}
