package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"motobms/internal/models"
)

// NextEstimateNo issues "E-YYYYMMDD-N", N restarting daily like order numbers.
func NextEstimateNo(tx *gorm.DB, day time.Time) (string, error) {
	prefix := "E-" + day.Format("20060102")
	var nos []string
	if err := tx.Model(&models.Estimate{}).
		Where("estimate_no LIKE ?", prefix+"-%").
		Pluck("estimate_no", &nos).Error; err != nil {
		return "", err
	}
	max := 0
	for _, no := range nos {
		if n, err := strconv.Atoi(strings.TrimPrefix(no, prefix+"-")); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%d", prefix, max+1), nil
}
