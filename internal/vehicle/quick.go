package vehicle

import (
	"context"
)

// QuickCreate 用常用默认值快速创建车辆（汽油 / 三厢 / 0 公里 / Madrid）。
func QuickCreate(ctx context.Context, svc *Service, brand, model string, year int, price float64, sellerID uint) (*Vehicle, error) {
	return svc.Create(ctx, CreateInput{
		Brand:      brand,
		Model:      model,
		Year:       year,
		Price:      price,
		EngineType: EngineGasoline,
		BodyType:   BodySedan,
		Mileage:    0,
		City:       "Madrid",
		Province:   "Madrid",
	}, sellerID)
}

// SimpleSearch 两参数简化搜索：品牌 + 最高价，直接返回车辆列表。
// 空参数表示不过滤该维度。
func SimpleSearch(ctx context.Context, svc *Service, brand string, maxPrice float64) ([]Vehicle, error) {
	var fs Filters
	if brand != "" {
		fs = append(fs, Eq("brand", brand))
	}
	if maxPrice > 0 {
		fs = append(fs, LTE("price", maxPrice))
	}
	page, err := svc.Search(ctx, SearchInput{Filters: fs})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}
