package vehicle

import (
	"regexp"
	"strings"
	"time"

	"github.com/automercado/automercado/internal/common/apperr"
)

const minYear = 1900

// namePattern 品牌/型号只允许字母、数字、空格和连字符。
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9 \-]+$`)

// ValidateCreateInput 纯函数校验，返回第一条失败规则的错误，无副作用。
func ValidateCreateInput(in CreateInput, now time.Time) error {
	if strings.TrimSpace(in.Brand) == "" {
		return apperr.Validationf("brand is required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return apperr.Validationf("model is required")
	}
	if in.Year == 0 {
		return apperr.Validationf("year is required")
	}
	if in.Price == 0 {
		return apperr.Validationf("price is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return apperr.Validationf("city is required")
	}
	if strings.TrimSpace(in.Province) == "" {
		return apperr.Validationf("province is required")
	}

	maxYear := now.Year() + 1
	if in.Year < minYear || in.Year > maxYear {
		return apperr.Validationf("year must be between %d and %d", minYear, maxYear)
	}
	if in.Price <= 0 {
		return apperr.Validationf("price must be greater than 0")
	}
	if in.Mileage < 0 {
		return apperr.Validationf("mileage cannot be negative")
	}

	if !namePattern.MatchString(strings.TrimSpace(in.Brand)) {
		return apperr.Validationf("brand contains invalid characters")
	}
	if !namePattern.MatchString(strings.TrimSpace(in.Model)) {
		return apperr.Validationf("model contains invalid characters")
	}

	if !ValidEngineType(in.EngineType) {
		return apperr.Validationf("unknown engine type: %s", in.EngineType)
	}
	if !ValidBodyType(in.BodyType) {
		return apperr.Validationf("unknown body type: %s", in.BodyType)
	}

	return nil
}
