package vehicle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/automercado/automercado/internal/common/apperr"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Create(v).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Conflictf("vehicle already exists")
		}
		return apperr.Wrap(apperr.KindInternal, "create vehicle", err)
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id uint) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	if err := db.First(&v, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("vehicle %d not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, "find vehicle", err)
	}
	return &v, nil
}

func (r *Repo) Save(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if err := db.Save(v).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "save vehicle", err)
	}
	return nil
}

// IncrementViews 浏览计数 +1（原子更新，不触发 updated_at）。
func (r *Repo) IncrementViews(ctx context.Context, id uint) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Vehicle{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return apperr.Wrap(apperr.KindInternal, "increment views", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("vehicle %d not found", id)
	}
	return nil
}

// Search 按条件查询一页记录；orderBy 前缀 "-" 表示倒序，空串按 id 升序。
func (r *Repo) Search(ctx context.Context, fs Filters, limit, offset int, orderBy string) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if strings.TrimSpace(orderBy) == "" {
		orderBy = "id"
	}

	q := applyFilters(db.Model(&Vehicle{}), fs)
	q = applyOrder(q, orderBy)

	var vehicles []Vehicle
	if err := q.Offset(offset).Limit(limit).Find(&vehicles).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "search vehicles", err)
	}
	return vehicles, nil
}

// Count 与 Search 使用相同的条件语义（含 between）。
func (r *Repo) Count(ctx context.Context, fs Filters) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	if err := applyFilters(db.Model(&Vehicle{}), fs).Count(&total).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count vehicles", err)
	}
	return total, nil
}

// TextSearch 在 brand / model / description 上做大小写不敏感的子串匹配，
// 仅命中激活且在售的车辆。结果顺序为存储默认顺序。
func (r *Repo) TextSearch(ctx context.Context, query string, limit int) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var vehicles []Vehicle
	err := db.Model(&Vehicle{}).
		Where("active = ? AND status = ?", true, StatusAvailable).
		Where("LOWER(brand) LIKE ? OR LOWER(model) LIKE ? OR LOWER(description) LIKE ?",
			pattern, pattern, pattern).
		Limit(limit).
		Find(&vehicles).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "text search", err)
	}
	return vehicles, nil
}

// SimilarByBrand 第一阶段：同品牌、价格区间内、排除本车。
func (r *Repo) SimilarByBrand(ctx context.Context, subject *Vehicle, lo, hi float64, limit int) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	err := db.Model(&Vehicle{}).
		Where("active = ? AND status = ?", true, StatusAvailable).
		Where("brand = ?", subject.Brand).
		Where("price BETWEEN ? AND ?", lo, hi).
		Where("id <> ?", subject.ID).
		Limit(limit).
		Find(&vehicles).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "similar by brand", err)
	}
	return vehicles, nil
}

// SimilarByBody 第二阶段补足：同车身类型、价格区间内、品牌不同。
func (r *Repo) SimilarByBody(ctx context.Context, subject *Vehicle, lo, hi float64, limit int) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var vehicles []Vehicle
	err := db.Model(&Vehicle{}).
		Where("active = ? AND status = ?", true, StatusAvailable).
		Where("body_type = ?", subject.BodyType).
		Where("brand <> ?", subject.Brand).
		Where("price BETWEEN ? AND ?", lo, hi).
		Limit(limit).
		Find(&vehicles).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "similar by body", err)
	}
	return vehicles, nil
}

// Total 全表记录数（含下架和已售出）。
func (r *Repo) Total(ctx context.Context) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var total int64
	if err := db.Model(&Vehicle{}).Count(&total).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "count total", err)
	}
	return total, nil
}

type statusCountRow struct {
	Status Status `gorm:"column:status"`
	Cnt    int64  `gorm:"column:cnt"`
}

// CountByStatus 按状态统计激活车辆数。
func (r *Repo) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rows []statusCountRow
	err := db.Model(&Vehicle{}).
		Select("status, COUNT(*) AS cnt").
		Where("active = ?", true).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "count by status", err)
	}
	out := map[Status]int64{
		StatusAvailable: 0,
		StatusReserved:  0,
		StatusSold:      0,
	}
	for _, row := range rows {
		out[row.Status] = row.Cnt
	}
	return out, nil
}

// BrandCount 品牌聚合结果。
type BrandCount struct {
	Brand string `gorm:"column:brand"`
	Count int64  `gorm:"column:cnt"`
}

// TopBrands 激活车辆数最多的前 n 个品牌（降序）。
func (r *Repo) TopBrands(ctx context.Context, n int) ([]BrandCount, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	if n <= 0 {
		n = 5
	}
	var rows []BrandCount
	err := db.Model(&Vehicle{}).
		Select("brand, COUNT(*) AS cnt").
		Where("active = ?", true).
		Group("brand").
		Order("cnt DESC").
		Limit(n).
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "top brands", err)
	}
	return rows, nil
}

type enginePriceRow struct {
	EngineType EngineType `gorm:"column:engine_type"`
	AvgPrice   float64    `gorm:"column:avg_price"`
}

// AvgPriceByEngine 按发动机类型统计激活车辆的平均价（保留两位小数）。
// 没有记录的类型为 0。
func (r *Repo) AvgPriceByEngine(ctx context.Context) (map[EngineType]float64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rows []enginePriceRow
	err := db.Model(&Vehicle{}).
		Select("engine_type, AVG(price) AS avg_price").
		Where("active = ?", true).
		Group("engine_type").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "avg price by engine", err)
	}
	out := make(map[EngineType]float64, len(EngineTypes))
	for _, e := range EngineTypes {
		out[e] = 0
	}
	for _, row := range rows {
		out[row.EngineType] = math.Round(row.AvgPrice*100) / 100
	}
	return out, nil
}
